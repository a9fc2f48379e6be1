// Package registertokens stores invite tokens.
package registertokens

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token string) (*models.RegisterToken, error)
	Exists(ctx context.Context, token string) (bool, error)
}
