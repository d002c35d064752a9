// Package crypto hashes and verifies room passwords.
package crypto

import (
	"errors"
	"fmt"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type BcryptGuard struct {
	cost int
}

var _ domain.PasswordGuard = (*BcryptGuard)(nil)

// NewBcryptGuard returns a guard hashing with cost, falling back to
// bcrypt.DefaultCost when cost is outside bcrypt's accepted range.
func NewBcryptGuard(cost int) *BcryptGuard {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptGuard{cost: cost}
}

// Hash creates a salted bcrypt hash of plain.
func (g *BcryptGuard) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password cannot be empty", domain.ErrInvalidConfig)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), g.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", domain.ErrInvalidConfig)
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares in constant time. Mismatches, empty and malformed hashes
// all report false.
func (g *BcryptGuard) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
