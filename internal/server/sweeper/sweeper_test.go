package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, m *repotest.Manager) int64 {
	t.Helper()
	u, err := m.Users(nil).Create(context.Background(), &models.User{Username: "alice", Role: "user"})
	require.NoError(t, err)
	return u.ID
}

func TestSweep_RemovesOnlyPastExpiries(t *testing.T) {
	m := repotest.NewManager()
	uid := seedUser(t, m)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := m.RefreshTokens(nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, uid, "past", now.Add(-time.Second)))
	require.NoError(t, repo.Create(ctx, uid, "present", now))
	require.NoError(t, repo.Create(ctx, uid, "future", now.Add(time.Hour)))

	s := New(repo, time.Hour, time.Second, func() time.Time { return now }, logging.NewNopLogger())

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Find(ctx, "past")
	assert.Error(t, err)
	_, err = repo.Find(ctx, "present")
	assert.NoError(t, err)
	_, err = repo.Find(ctx, "future")
	assert.NoError(t, err)
}

func TestSweep_PropagatesStoreError(t *testing.T) {
	m := repotest.NewManager()
	m.SetErr(errors.New("db down"))

	s := New(m.RefreshTokens(nil), time.Hour, time.Second, nil, logging.NewNopLogger())
	_, err := s.Sweep(context.Background())
	assert.EqualError(t, err, "db down")
}

type countingRepo struct {
	calls atomic.Int32
	fail  bool
	refreshtokens.Repository
}

func (c *countingRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	if c.fail {
		return 0, errors.New("boom")
	}
	return 0, nil
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	repo := &countingRepo{fail: true, Repository: repotest.NewManager().RefreshTokens(nil)}
	s := New(repo, 5*time.Millisecond, time.Second, nil, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return repo.calls.Load() >= 3 }, time.Second, time.Millisecond,
		"failed passes must not stop the loop")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_SweepsOnStart(t *testing.T) {
	repo := &countingRepo{Repository: repotest.NewManager().RefreshTokens(nil)}
	s := New(repo, time.Hour, time.Second, nil, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, time.Millisecond,
		"first pass must not wait a full interval")
}
