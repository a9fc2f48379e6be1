package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// SessionService drives the session lifecycle: login, access-token refresh,
// logout and per-request authentication.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *UserService
	issuer      *auth.TokenIssuer
	now         timex.Clock
	dbTimeout   time.Duration
}

// NewSessionService wires the session lifecycle. now must be the same clock
// the issuer uses.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, users *UserService, issuer *auth.TokenIssuer, now timex.Clock, dbTimeout time.Duration) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		db:          db,
		repomanager: m,
		users:       users,
		issuer:      issuer,
		now:         now,
		dbTimeout:   dbTimeout,
	}
}

// Login verifies the credentials and issues a fresh token pair. The refresh
// token is persisted so that it can later be revoked.
func (s *SessionService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	access, err := s.issuer.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error signing refresh token: %w", err)
	}

	if err := s.storeRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself stays valid until logout or expiry.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	sctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	stored, err := s.repomanager.RefreshTokens(s.db).Find(sctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrTokenRevoked
		}
		return "", fmt.Errorf("error searching refresh token: %w", err)
	}
	if stored.ExpiresAt.Before(s.now()) {
		return "", common.ErrTokenExpired
	}
	if stored.UserID != userID {
		return "", common.ErrInvalidToken
	}

	access, err := s.issuer.IssueAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("error signing access token: %w", err)
	}
	return access, nil
}

// Logout revokes refreshToken if it was issued to userID. Unknown, empty or
// foreign tokens are not an error and are left untouched.
func (s *SessionService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, userID, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Authenticate resolves an access token to its user. A token for a user that
// no longer exists is reported as common.ErrInvalidToken.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := s.issuer.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *SessionService) storeRefreshToken(ctx context.Context, userID int64, token string) error {
	expiresAt := s.now().Add(s.issuer.RefreshTTL())
	if !expiresAt.After(s.now()) {
		return fmt.Errorf("%w: refresh token expiry must be in the future", common.ErrorValidation)
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	if err := s.repomanager.RefreshTokens(s.db).Create(ctx, userID, token, expiresAt); err != nil {
		return fmt.Errorf("error storing refresh token: %w", err)
	}
	return nil
}
