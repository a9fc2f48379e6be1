package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

const selectColumns = `id, title, isbn, tags, quick_link, created_by_id, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindOrCreate(ctx context.Context, book *models.Book) (*models.Book, error) {
	tags := book.Tags
	if tags == nil {
		tags = []string{}
	}

	var createdBy any
	if book.CreatedByID > 0 {
		createdBy = book.CreatedByID
	}

	insert :=
		`INSERT INTO books (title, isbn, tags, quick_link, created_by_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (isbn) DO NOTHING
		 `
	if _, err := r.db.ExecContext(ctx, insert, book.Title, book.ISBN, tags, book.QuickLink, createdBy); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	return r.GetByISBN(ctx, book.ISBN)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	query := `SELECT ` + selectColumns + ` FROM books WHERE id = $1`
	return scanBook(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	query := `SELECT ` + selectColumns + ` FROM books WHERE isbn = $1`
	return scanBook(r.db.QueryRowContext(ctx, query, isbn))
}

func scanBook(row *sql.Row) (*models.Book, error) {
	var (
		b         models.Book
		createdBy sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.Title, &b.ISBN, dbx.TextArray(&b.Tags), &b.QuickLink, &createdBy, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	b.CreatedByID = createdBy.Int64
	return &b, nil
}
