// Package services contains server-side business logic: credential checks,
// the session lifecycle, the personal library, invite tokens and the
// StoryGraph import.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
)

// UserService owns the credential store: it creates users and verifies
// username/password pairs.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	dbTimeout   time.Duration
	dummyHash   []byte
}

// NewUserService constructs a UserService. dbTimeout bounds every store call.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.Hasher, dbTimeout time.Duration) *UserService {
	// Compared against when the username is unknown, so a miss costs the
	// same bcrypt work as a wrong password.
	dummy, _ := hasher.Hash(common.GenerateRandByteArray(16))
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		dbTimeout:   dbTimeout,
		dummyHash:   dummy,
	}
}

// Verify returns the user owning username if password matches. An unknown
// username and a wrong password both yield common.ErrInvalidCredentials.
func (s *UserService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.hasher.Compare(s.dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error comparing password: %w", err)
	}
	return user, nil
}

// Register creates a user with a freshly hashed password. The username is
// stored exactly as given, so one with surrounding whitespace is rejected
// rather than silently trimmed. A taken username yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, password string, email *string, role string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}
	if username != strings.TrimSpace(username) {
		return nil, fmt.Errorf("%w: username must not start or end with whitespace", common.ErrorValidation)
	}
	if role != common.RoleUser && role != common.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	if email != nil && *email == "" {
		email = nil
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	user := &models.User{Username: username, PasswordHash: hash, Email: email, Role: role}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// Delete removes the user together with their sessions and library.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.Users(s.db).Delete(ctx, id)
}
