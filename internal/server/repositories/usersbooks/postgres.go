package usersbooks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

const selectJoined = `
	SELECT ub.id, ub.user_id, ub.book_id, ub.user_rating, ub.date_started, ub.date_finished,
	       ub.user_notes, ub.created_at, ub.updated_at,
	       b.id, b.title, b.isbn, b.tags, b.quick_link, b.created_by_id, b.created_at
	FROM users_books ub
	JOIN books b ON b.id = ub.book_id
`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserBook, error) {
	query := selectJoined + `WHERE ub.user_id = $1 ORDER BY ub.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	defer rows.Close()

	result := []*models.UserBook{}
	for rows.Next() {
		ub, err := scanJoined(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, ub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, bookID int64) (*models.UserBook, error) {
	query := selectJoined + `WHERE ub.user_id = $1 AND ub.book_id = $2`

	ub, err := scanJoined(r.db.QueryRowContext(ctx, query, userID, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ub, nil
}

func (r *PostgresRepository) Create(ctx context.Context, ub *models.UserBook) (*models.UserBook, error) {
	query := `
		INSERT INTO users_books (user_id, book_id, user_rating, date_started, date_finished, user_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ub.UserID, ub.BookID, ub.UserRating, ub.DateStarted, ub.DateFinished, ub.UserNotes).
		Scan(&ub.ID, &ub.CreatedAt, &ub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ub, nil
}

func (r *PostgresRepository) Update(ctx context.Context, ub *models.UserBook) (*models.UserBook, error) {
	query := `
		UPDATE users_books
		SET user_rating = $3, date_started = $4, date_finished = $5, user_notes = $6, updated_at = now()
		WHERE user_id = $1 AND book_id = $2
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ub.UserID, ub.BookID, ub.UserRating, ub.DateStarted, ub.DateFinished, ub.UserNotes).
		Scan(&ub.ID, &ub.CreatedAt, &ub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ub, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, bookID int64) error {
	query := `DELETE FROM users_books WHERE user_id = $1 AND book_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, bookID); err != nil {
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJoined(s scanner) (*models.UserBook, error) {
	var (
		ub        models.UserBook
		b         models.Book
		rating    sql.NullInt32
		started   sql.NullTime
		finished  sql.NullTime
		notes     sql.NullString
		createdBy sql.NullInt64
	)
	err := s.Scan(
		&ub.ID, &ub.UserID, &ub.BookID, &rating, &started, &finished,
		&notes, &ub.CreatedAt, &ub.UpdatedAt,
		&b.ID, &b.Title, &b.ISBN, dbx.TextArray(&b.Tags), &b.QuickLink, &createdBy, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		v := int(rating.Int32)
		ub.UserRating = &v
	}
	if started.Valid {
		ub.DateStarted = &started.Time
	}
	if finished.Valid {
		ub.DateFinished = &finished.Time
	}
	if notes.Valid {
		ub.UserNotes = &notes.String
	}
	b.CreatedByID = createdBy.Int64
	ub.Book = &b
	return &ub, nil
}
