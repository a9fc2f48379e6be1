package auth

import (
	"testing"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, MinCost, NewBcryptHasher(4).Cost)
	assert.Equal(t, 12, NewBcryptHasher(12).Cost)
	assert.Equal(t, bcrypt.MaxCost, NewBcryptHasher(99).Cost)
}

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := NewBcryptHasher(MinCost)

	hash, err := h.Hash([]byte("pw123"))
	require.NoError(t, err)

	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, MinCost)

	assert.NoError(t, h.Compare(hash, []byte("pw123")))
	assert.ErrorIs(t, h.Compare(hash, []byte("wrong")), common.ErrInvalidCredentials)
	assert.ErrorIs(t, h.Compare([]byte("short"), []byte("pw123")), common.ErrInvalidCredentials)
}
