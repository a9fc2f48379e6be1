// Package usersbooks stores the per-user library: which books a user tracks
// together with their rating, notes and reading dates.
package usersbooks

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type Repository interface {
	// ListByUser returns the user's entries with the book attached.
	ListByUser(ctx context.Context, userID int64) ([]*models.UserBook, error)
	Get(ctx context.Context, userID, bookID int64) (*models.UserBook, error)
	// Create fails with common.ErrorAlreadyExists when the user already
	// tracks the book.
	Create(ctx context.Context, ub *models.UserBook) (*models.UserBook, error)
	// Update overwrites rating, dates and notes of an existing entry.
	Update(ctx context.Context, ub *models.UserBook) (*models.UserBook, error)
	// Delete is idempotent.
	Delete(ctx context.Context, userID, bookID int64) error
}
