package claims

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

const issuerName = "gadgetbay"

var (
	// ErrInvalidToken covers malformed, forged or incomplete tokens.
	ErrInvalidToken = errors.New("claims: invalid token")
	// ErrExpired is returned for a well-formed token past its expiry.
	ErrExpired = errors.New("claims: token expired")
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Role          string `json:"role"`
	AccountStatus string `json:"accountStatus"`
}

// Issuer signs and verifies claims tokens with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer. ttl is the absolute lifetime of every token.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("claims: secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("claims: ttl must be positive")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Mint signs a fresh token for the actor.
func (i *Issuer) Mint(actor rbac.Actor) (Token, error) {
	if actor.ID == "" {
		return Token{}, errors.New("claims: subject required")
	}
	now := i.now().UTC().Truncate(time.Second)
	c := Claims{
		ID:        uuid.NewString(),
		Subject:   actor.ID,
		Role:      actor.Role,
		Status:    actor.Status,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        c.ID,
			Issuer:    issuerName,
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		Role:          string(c.Role),
		AccountStatus: string(c.Status),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("claims: sign: %w", err)
	}
	return Token{Value: signed, Claims: c}, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (i *Issuer) Parse(raw string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" || tc.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}
	role, ok := rbac.ParseRole(tc.Role)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	status := rbac.AccountStatus(tc.AccountStatus)
	if !status.Valid() {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		ID:        tc.ID,
		Subject:   tc.Subject,
		Role:      role,
		Status:    status,
		IssuedAt:  tc.IssuedAt.Time.UTC(),
		ExpiresAt: tc.ExpiresAt.Time.UTC(),
	}, nil
}
