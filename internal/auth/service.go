package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// AccountStore is the slice of the account store that sign-in and
// registration need.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*accounts.Account, error)
	CreateAccount(ctx context.Context, in accounts.NewAccount) (*accounts.Account, error)
}

// Service wraps authentication business rules.
type Service struct {
	store     AccountStore
	hasher    accounts.PasswordHasher
	issuer    *claims.Issuer
	refresher *claims.Refresher
	validate  *validator.Validate
}

// NewService constructs a new Service.
func NewService(store AccountStore, hasher accounts.PasswordHasher, issuer *claims.Issuer, refresher *claims.Refresher) *Service {
	return &Service{store: store, hasher: hasher, issuer: issuer, refresher: refresher, validate: shared.NewValidator()}
}

// NormalizeEmail case-folds and trims an email address.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// Authenticate validates email/password credentials. Unknown accounts,
// credential-less accounts and mismatches all return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	account, err := s.store.FindAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return Principal{}, shared.ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("auth: authenticate: %w", err)
	}
	if !account.HasPassword() || !s.hasher.Verify(account.PasswordHash, password) {
		return Principal{}, shared.ErrInvalidCredentials
	}
	return principalFrom(account), nil
}

// SignIn authenticates and mints claims. Suspended and banned accounts are
// refused even with a correct password, and nothing is minted for them.
func (s *Service) SignIn(ctx context.Context, input LoginInput) (Session, error) {
	input.Email = NormalizeEmail(input.Email)
	if err := shared.Validate(s.validate, input); err != nil {
		return Session{}, err
	}
	principal, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return Session{}, err
	}
	if d := rbac.RequireActive(principal.Status); !d.Authorized {
		return Session{}, d.Err()
	}
	tok, err := s.issuer.Mint(principal.Actor())
	if err != nil {
		return Session{}, fmt.Errorf("auth: sign in: %w", err)
	}
	return Session{Principal: principal, Token: tok}, nil
}

// Register creates a USER account with a local credential. It does not sign
// the new account in.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Principal, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = NormalizeEmail(input.Email)
	if err := shared.Validate(s.validate, input); err != nil {
		return Principal{}, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: register: %w", err)
	}
	account, err := s.store.CreateAccount(ctx, accounts.NewAccount{Email: input.Email, Name: input.Name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			return Principal{}, shared.ErrEmailTaken
		}
		return Principal{}, fmt.Errorf("auth: register: %w", err)
	}
	return principalFrom(account), nil
}

// Refresh re-derives claims from the store on an explicit update trigger.
func (s *Service) Refresh(ctx context.Context, current claims.Claims) (claims.Token, error) {
	return s.refresher.Refresh(ctx, current, claims.TriggerUpdate)
}
