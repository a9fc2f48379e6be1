package services

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repotest"
	"github.com/stretchr/testify/require"
)

// plainHasher keeps service tests fast; bcrypt itself is covered in auth.
type plainHasher struct{ compares atomic.Int32 }

func (h *plainHasher) Hash(p []byte) ([]byte, error) {
	return append([]byte("h:"), p...), nil
}

func (h *plainHasher) Compare(hash, p []byte) error {
	h.compares.Add(1)
	if !bytes.Equal(hash, append([]byte("h:"), p...)) {
		return common.ErrInvalidCredentials
	}
	return nil
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	rm       *repotest.Manager
	hasher   *plainHasher
	clock    *testClock
	users    *UserService
	sessions *SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	issuer, err := auth.NewTokenIssuer("access", "refresh", time.Hour, 180*24*time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	rm := repotest.NewManager()
	h := &plainHasher{}
	users := NewUserService(nil, rm, h, time.Second)
	return &fixture{
		rm:       rm,
		hasher:   h,
		clock:    clock,
		users:    users,
		sessions: NewSessionService(nil, rm, users, issuer, clock.Now, time.Second),
	}
}

func (f *fixture) addUser(t *testing.T, name, password, role string) int64 {
	t.Helper()
	u, err := f.users.Register(context.Background(), name, password, nil, role)
	require.NoError(t, err)
	return u.ID
}
