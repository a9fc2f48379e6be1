package auth

import (
	"errors"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(password []byte) ([]byte, error)
	// Compare returns common.ErrInvalidCredentials on a mismatch.
	Compare(hash, password []byte) error
}

// MinCost is the lowest bcrypt cost BcryptHasher will use.
const MinCost = 10

type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher clamps cost into [MinCost, bcrypt.MaxCost].
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < MinCost {
		cost = MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(password []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(password, h.Cost)
}

func (h BcryptHasher) Compare(hash, password []byte) error {
	err := bcrypt.CompareHashAndPassword(hash, password)
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrHashTooShort) {
		return common.ErrInvalidCredentials
	}
	return err
}
