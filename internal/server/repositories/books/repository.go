// Package books stores the shared book catalogue.
package books

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type Repository interface {
	// FindOrCreate returns the book with book.ISBN, inserting it first if no
	// such book exists yet. Calling it twice with the same ISBN yields the
	// same row.
	FindOrCreate(ctx context.Context, book *models.Book) (*models.Book, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
}
