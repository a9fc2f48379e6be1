package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
)

const registerTokenBytes = 16

// RegisterTokenService hands out and checks invite tokens.
type RegisterTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	dbTimeout   time.Duration
}

func NewRegisterTokenService(db *sql.DB, m repomanager.RepositoryManager, dbTimeout time.Duration) *RegisterTokenService {
	return &RegisterTokenService{db: db, repomanager: m, dbTimeout: dbTimeout}
}

func (s *RegisterTokenService) Create(ctx context.Context) (string, error) {
	token, err := common.MakeRandHexString(registerTokenBytes)
	if err != nil {
		return "", fmt.Errorf("error generating register token: %w", err)
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	if _, err := s.repomanager.RegisterTokens(s.db).Create(ctx, token); err != nil {
		return "", fmt.Errorf("error storing register token: %w", err)
	}
	return token, nil
}

func (s *RegisterTokenService) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.RegisterTokens(s.db).Exists(ctx, token)
}
