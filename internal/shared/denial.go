package shared

import "errors"

// Code is a stable, machine-readable reason string returned to API clients.
type Code string

// Authentication, account-state and authorization codes.
const (
	CodeUnauthenticated         Code = "UNAUTHENTICATED"
	CodeAccountSuspended        Code = "ACCOUNT_SUSPENDED"
	CodeAccountBanned           Code = "ACCOUNT_BANNED"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodeForbidden               Code = "FORBIDDEN"
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeValidation              Code = "VALIDATION_ERROR"
)

// Account administration codes.
const (
	CodeUserNotFound            Code = "USER_NOT_FOUND"
	CodeCannotSuspendAdmin      Code = "CANNOT_SUSPEND_ADMIN"
	CodeCannotSuspendSuperAdmin Code = "CANNOT_SUSPEND_SUPER_ADMIN"
	CodeCannotBanAdmin          Code = "CANNOT_BAN_ADMIN"
	CodeCannotBanSuperAdmin     Code = "CANNOT_BAN_SUPER_ADMIN"
	CodeCannotChangeOwnRole     Code = "CANNOT_CHANGE_OWN_ROLE"
	CodeEmailTaken              Code = "EMAIL_TAKEN"
	CodeNoPasswordSet           Code = "NO_PASSWORD_SET"
	CodeInvalidCurrentPassword  Code = "INVALID_CURRENT_PASSWORD"
)

// Marketplace codes.
const (
	CodeOnlyUsersCanApply          Code = "ONLY_USERS_CAN_APPLY"
	CodeApplicationAlreadyPending  Code = "APPLICATION_ALREADY_PENDING"
	CodeApplicationNotFound        Code = "APPLICATION_NOT_FOUND"
	CodeApplicationAlreadyReviewed Code = "APPLICATION_ALREADY_REVIEWED"
	CodeSellerOnly                 Code = "SELLER_ONLY"
	CodeSellerProfileNotFound      Code = "SELLER_PROFILE_NOT_FOUND"
	CodeListingNotFound            Code = "LISTING_NOT_FOUND"
	CodeListingNotAvailable        Code = "LISTING_NOT_AVAILABLE"
	CodeCannotBuyOwnListing        Code = "CANNOT_BUY_OWN_LISTING"
	CodeOrderNotFound              Code = "ORDER_NOT_FOUND"
	CodeOrderCannotBeCancelled     Code = "ORDER_CANNOT_BE_CANCELLED"
	CodeRefundOnlyForDelivered     Code = "REFUND_ONLY_FOR_DELIVERED_ORDERS"
	CodeReviewNotFound             Code = "REVIEW_NOT_FOUND"
	CodeMustPurchaseBeforeReview   Code = "MUST_PURCHASE_BEFORE_REVIEW"
	CodeReviewAlreadyExists        Code = "REVIEW_ALREADY_EXISTS"
	CodeDuplicateRequest           Code = "DUPLICATE_REQUEST"
)

// Kind groups codes by how they are surfaced to callers.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindAccountState
	KindAuthorization
	KindDomainRule
	KindNotFound
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAccountState:
		return "account_state"
	case KindAuthorization:
		return "authorization"
	case KindDomainRule:
		return "domain_rule"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Denial is an expected refusal. It is returned as an ordinary error value and
// never signals a dependency failure.
type Denial struct {
	Code    Code
	Kind    Kind
	Message string
}

func (d *Denial) Error() string {
	return string(d.Code)
}

// Is matches any Denial carrying the same code.
func (d *Denial) Is(target error) bool {
	t, ok := target.(*Denial)
	if !ok {
		return false
	}
	return t.Code == d.Code
}

// Deny builds a Denial.
func Deny(kind Kind, code Code, message string) *Denial {
	return &Denial{Code: code, Kind: kind, Message: message}
}

// AsDenial unwraps err into a Denial when it is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

var (
	ErrUnauthenticated         = Deny(KindAuthentication, CodeUnauthenticated, "Authentication required")
	ErrAccountSuspended        = Deny(KindAccountState, CodeAccountSuspended, "Your account has been suspended")
	ErrAccountBanned           = Deny(KindAccountState, CodeAccountBanned, "Your account has been banned")
	ErrInsufficientPermissions = Deny(KindAuthorization, CodeInsufficientPermissions, "Insufficient permissions")
	ErrForbidden               = Deny(KindAuthorization, CodeForbidden, "Insufficient permissions")
	ErrInvalidCredentials      = Deny(KindAuthentication, CodeInvalidCredentials, "Invalid email or password")

	ErrUserNotFound            = Deny(KindNotFound, CodeUserNotFound, "User not found")
	ErrCannotSuspendAdmin      = Deny(KindDomainRule, CodeCannotSuspendAdmin, "Admins cannot suspend other admins")
	ErrCannotSuspendSuperAdmin = Deny(KindDomainRule, CodeCannotSuspendSuperAdmin, "Super admins cannot be suspended")
	ErrCannotBanAdmin          = Deny(KindDomainRule, CodeCannotBanAdmin, "Admins cannot ban other admins")
	ErrCannotBanSuperAdmin     = Deny(KindDomainRule, CodeCannotBanSuperAdmin, "Super admins cannot be banned")
	ErrCannotChangeOwnRole     = Deny(KindDomainRule, CodeCannotChangeOwnRole, "You cannot change your own role")
	ErrEmailTaken              = Deny(KindConflict, CodeEmailTaken, "An account with this email already exists")
	ErrNoPasswordSet           = Deny(KindInvalid, CodeNoPasswordSet, "This account signs in through an identity provider")
	ErrInvalidCurrentPassword  = Deny(KindInvalid, CodeInvalidCurrentPassword, "Current password is incorrect")

	ErrOnlyUsersCanApply          = Deny(KindDomainRule, CodeOnlyUsersCanApply, "Only regular users can apply to become sellers")
	ErrApplicationAlreadyPending  = Deny(KindConflict, CodeApplicationAlreadyPending, "You already have a pending application")
	ErrApplicationNotFound        = Deny(KindNotFound, CodeApplicationNotFound, "Application not found")
	ErrApplicationAlreadyReviewed = Deny(KindConflict, CodeApplicationAlreadyReviewed, "Application has already been reviewed")
	ErrSellerOnly                 = Deny(KindDomainRule, CodeSellerOnly, "Only sellers can perform this action")
	ErrSellerProfileNotFound      = Deny(KindNotFound, CodeSellerProfileNotFound, "Seller profile not found")
	ErrListingNotFound            = Deny(KindNotFound, CodeListingNotFound, "Listing not found")
	ErrListingNotAvailable        = Deny(KindInvalid, CodeListingNotAvailable, "Listing is not available")
	ErrCannotBuyOwnListing        = Deny(KindDomainRule, CodeCannotBuyOwnListing, "You cannot buy your own listing")
	ErrOrderNotFound              = Deny(KindNotFound, CodeOrderNotFound, "Order not found")
	ErrOrderCannotBeCancelled     = Deny(KindInvalid, CodeOrderCannotBeCancelled, "Order can no longer be cancelled")
	ErrRefundOnlyForDelivered     = Deny(KindInvalid, CodeRefundOnlyForDelivered, "Refunds can only be requested for delivered orders")
	ErrReviewNotFound             = Deny(KindNotFound, CodeReviewNotFound, "Review not found")
	ErrMustPurchaseBeforeReview   = Deny(KindDomainRule, CodeMustPurchaseBeforeReview, "You must purchase this item before reviewing")
	ErrReviewAlreadyExists        = Deny(KindConflict, CodeReviewAlreadyExists, "You have already reviewed this listing")
	ErrDuplicateRequest           = Deny(KindConflict, CodeDuplicateRequest, "Request has already been processed")
)
