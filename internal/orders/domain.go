package orders

import (
	"time"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusConfirmed       Status = "CONFIRMED"
	StatusProcessing      Status = "PROCESSING"
	StatusShipped         Status = "SHIPPED"
	StatusDelivered       Status = "DELIVERED"
	StatusCancelled       Status = "CANCELLED"
	StatusRefundRequested Status = "REFUND_REQUESTED"
	StatusRefunded        Status = "REFUNDED"
)

// Cancellable reports whether a buyer may still cancel without staff help.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Order is a purchase of one listing.
type Order struct {
	ID              string
	BuyerID         string
	SellerID        string
	ListingID       string
	TotalCents      int64
	Status          Status
	ShippingAddress string
	Notes           string
	TrackingNumber  string
	TrackingURL     string
	CancelReason    string
	RefundReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder carries the fields written by Create.
type NewOrder struct {
	BuyerID         string
	SellerID        string
	ListingID       string
	TotalCents      int64
	ShippingAddress string
	Notes           string
}

// Change is a status transition with its optional details. Empty strings
// leave the stored value untouched.
type Change struct {
	Status         Status
	TrackingNumber string
	TrackingURL    string
	CancelReason   string
	RefundReason   string
}

// CreateInput is the payload for Create.
type CreateInput struct {
	ListingID       string `json:"listingId" validate:"required,uuid"`
	ShippingAddress string `json:"shippingAddress" validate:"required,min=10,max=500"`
	Notes           string `json:"notes" validate:"max=500"`
}

// CancelInput is the payload for Cancel.
type CancelInput struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// StatusInput is the payload for UpdateStatus.
type StatusInput struct {
	Status         string `json:"status" validate:"required,oneof=PENDING CONFIRMED PROCESSING SHIPPED DELIVERED CANCELLED REFUND_REQUESTED REFUNDED"`
	TrackingNumber string `json:"trackingNumber" validate:"max=100"`
	TrackingURL    string `json:"trackingUrl" validate:"omitempty,url"`
}

// RefundInput is the payload for RequestRefund.
type RefundInput struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

// Page is a page of orders.
type Page struct {
	Orders     []Order
	Pagination shared.Pagination
}
