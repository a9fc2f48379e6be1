package registertokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token string) (*models.RegisterToken, error) {
	query := `
		INSERT INTO register_tokens (token)
		VALUES ($1)
		RETURNING id, created_at
	`
	rt := &models.RegisterToken{Token: token}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.ID, &rt.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return rt, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM register_tokens WHERE token = $1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ok, nil
}
