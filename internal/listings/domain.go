package listings

import (
	"time"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusActive  Status = "ACTIVE"
	StatusPaused  Status = "PAUSED"
	StatusSold    Status = "SOLD"
	StatusHidden  Status = "HIDDEN"
	StatusDeleted Status = "DELETED"
)

// Condition describes the physical state of the item.
type Condition string

const (
	ConditionNew         Condition = "NEW"
	ConditionLikeNew     Condition = "LIKE_NEW"
	ConditionGood        Condition = "GOOD"
	ConditionFair        Condition = "FAIR"
	ConditionRefurbished Condition = "REFURBISHED"
)

// Listing is a seller's offer.
type Listing struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	Model       string
	Condition   Condition
	PriceCents  int64
	Images      []string
	Warranty    string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available reports whether the listing can be ordered.
func (l Listing) Available() bool {
	return l.Status == StatusActive
}

// CreateInput is the payload for Create.
type CreateInput struct {
	Title       string   `json:"title" validate:"required,min=5,max=200"`
	Description string   `json:"description" validate:"required,min=20,max=5000"`
	Model       string   `json:"model" validate:"max=100"`
	Condition   string   `json:"condition" validate:"required,oneof=NEW LIKE_NEW GOOD FAIR REFURBISHED"`
	PriceCents  int64    `json:"priceCents" validate:"required,gt=0,lte=9999999900"`
	Images      []string `json:"images" validate:"required,min=1,max=10,dive,url"`
	Warranty    string   `json:"warrantyInfo" validate:"max=1000"`
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Title       *string  `json:"title" validate:"omitempty,min=5,max=200"`
	Description *string  `json:"description" validate:"omitempty,min=20,max=5000"`
	Model       *string  `json:"model" validate:"omitempty,max=100"`
	Condition   *string  `json:"condition" validate:"omitempty,oneof=NEW LIKE_NEW GOOD FAIR REFURBISHED"`
	PriceCents  *int64   `json:"priceCents" validate:"omitempty,gt=0,lte=9999999900"`
	Images      []string `json:"images" validate:"omitempty,min=1,max=10,dive,url"`
	Warranty    *string  `json:"warrantyInfo" validate:"omitempty,max=1000"`
}

// StatusInput is the payload for UpdateStatus. Sellers may only move between
// these three states; HIDDEN and DELETED are set by moderation and Delete.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE PAUSED SOLD"`
}

// BrowseFilter narrows Browse.
type BrowseFilter struct {
	Search    string
	Condition Condition
	MinCents  int64
	MaxCents  int64
	SellerID  string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Page is a page of listings.
type Page struct {
	Listings   []Listing
	Pagination shared.Pagination
}
