package reviews

import "time"

// Review is a buyer's rating of a listing they received.
type Review struct {
	ID        string
	UserID    string
	ListingID string
	Rating    int
	Comment   string
	Visible   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput is the payload for Create.
type CreateInput struct {
	ListingID string `json:"listingId" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}
