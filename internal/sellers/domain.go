package sellers

import (
	"time"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// ApplicationStatus is the review state of a seller application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Application is a request by a USER to start selling.
type Application struct {
	ID                  string
	UserID              string
	ApplicantName       string
	ApplicantEmail      string
	BusinessName        string
	BusinessDescription string
	Status              ApplicationStatus
	RejectionReason     string
	ReviewedBy          string
	ReviewedAt          *time.Time
	CreatedAt           time.Time
}

// Profile is the public storefront of an approved seller.
type Profile struct {
	UserID       string
	BusinessName string
	Description  string
	LogoURL      string
	ReturnPolicy string
	VerifiedBy   string
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Review actions.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// SubmitInput is the payload for Submit.
type SubmitInput struct {
	BusinessName        string `json:"businessName" validate:"required,min=2,max=200"`
	BusinessDescription string `json:"businessDescription" validate:"max=2000"`
}

// ReviewInput is the payload for Review.
type ReviewInput struct {
	ApplicationID   string `json:"applicationId" validate:"required,uuid"`
	Action          string `json:"action" validate:"required,oneof=APPROVE REJECT"`
	RejectionReason string `json:"rejectionReason" validate:"max=500"`
}

// ProfileInput carries the storefront fields to change. Nil fields are left alone.
type ProfileInput struct {
	BusinessName *string `json:"businessName" validate:"omitempty,min=2,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	LogoURL      *string `json:"logoUrl" validate:"omitempty,url"`
	ReturnPolicy *string `json:"returnPolicy" validate:"omitempty,max=5000"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status ApplicationStatus
	Page   int
	Limit  int
}

// ListResult is a page of applications.
type ListResult struct {
	Applications []Application
	Pagination   shared.Pagination
}
