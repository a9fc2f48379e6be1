package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
)

type plainHasher struct{}

func (plainHasher) Hash(p []byte) ([]byte, error) { return append([]byte("h:"), p...), nil }

func (plainHasher) Compare(hash, p []byte) error {
	if !bytes.Equal(hash, append([]byte("h:"), p...)) {
		return common.ErrInvalidCredentials
	}
	return nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memPutter struct {
	mu   sync.Mutex
	keys []string
}

func (p *memPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type testEnv struct {
	rm     *repotest.Manager
	clock  *testClock
	mock   sqlmock.Sqlmock
	users  *services.UserService
	putter *memPutter
	router http.Handler
}

const accessTTL = time.Hour

func newTestEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	issuer, err := auth.NewTokenIssuer("access-secret", "refresh-secret", accessTTL, 180*24*time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)

	logger := logging.NewNopLogger()
	rm := repotest.NewManager()
	users := services.NewUserService(db, rm, plainHasher{}, time.Second)
	sessions := services.NewSessionService(db, rm, users, issuer, clock.Now, time.Second)
	putter := &memPutter{}

	cfg := RouterConfig{
		Auth:        NewAuthHandler(sessions, logger),
		Users:       NewUserHandler(users, services.NewRegisterTokenService(db, rm, time.Second), logger),
		Library:     NewLibraryHandler(services.NewLibraryService(db, rm, clock.Now, time.Second), services.NewImportService(putter, "imports", logger), logger),
		Health:      NewHealthHandler(pinger{}, time.Second),
		RequireAuth: Authenticator(sessions, logger),
		Secure:      NewSecure(true),
		CORSOrigins: []string{"*"},
		Logger:      logger,
	}
	for _, o := range opts {
		o(&cfg)
	}

	return &testEnv{rm: rm, clock: clock, mock: mock, users: users, putter: putter, router: NewRouter(cfg)}
}

func (e *testEnv) addUser(t *testing.T, name, password, role string) int64 {
	t.Helper()
	u, err := e.users.Register(context.Background(), name, password, nil, role)
	require.NoError(t, err)
	return u.ID
}

// do sends a JSON request; body may be nil, a string or any JSON-encodable value.
func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (e *testEnv) login(t *testing.T, name, password string) tokenPair {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": name, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p tokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errDown = errors.New("connection refused")
