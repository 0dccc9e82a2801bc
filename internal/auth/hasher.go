package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
)

// BcryptHasher verifies and produces bcrypt credential hashes.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher at cost, falling back to bcrypt.DefaultCost
// when cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password matches hash.
func (h BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var _ accounts.PasswordHasher = BcryptHasher{}
