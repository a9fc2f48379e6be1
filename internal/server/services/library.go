package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
)

const maxNotesLength = 1000

// BookInput describes a book to add to the catalogue.
type BookInput struct {
	Title     string
	ISBN      string
	QuickLink string
	Tags      []string
}

// UserBookInput carries the user-editable fields of a library entry.
type UserBookInput struct {
	UserRating   *int
	DateStarted  *time.Time
	DateFinished *time.Time
	UserNotes    *string
}

// Validate checks the entry against now. Violations wrap common.ErrorValidation.
func (in UserBookInput) Validate(now time.Time) error {
	var errs []error
	if in.UserRating != nil && (*in.UserRating < 1 || *in.UserRating > 10) {
		errs = append(errs, errors.New("user rating must be between 1 and 10"))
	}
	if in.UserNotes != nil {
		if n := utf8.RuneCountInString(*in.UserNotes); n < 1 || n > maxNotesLength {
			errs = append(errs, fmt.Errorf("user notes must be between 1 and %d characters", maxNotesLength))
		}
	}
	if in.DateStarted != nil && in.DateFinished != nil && in.DateStarted.After(*in.DateFinished) {
		errs = append(errs, errors.New("date started must be before date finished"))
	}
	if in.DateStarted != nil && in.DateStarted.After(now) {
		errs = append(errs, errors.New("date started must be in the past"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrorValidation, errors.Join(errs...))
}

// LibraryService manages the book catalogue and each user's library.
type LibraryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         timex.Clock
	dbTimeout   time.Duration
}

func NewLibraryService(db *sql.DB, m repomanager.RepositoryManager, now timex.Clock, dbTimeout time.Duration) *LibraryService {
	if now == nil {
		now = time.Now
	}
	return &LibraryService{db: db, repomanager: m, now: now, dbTimeout: dbTimeout}
}

// AddBook returns the catalogue entry for in.ISBN, creating it on first use.
func (s *LibraryService) AddBook(ctx context.Context, in BookInput, createdBy int64) (*models.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.TrimSpace(in.ISBN)
	if in.Title == "" || in.ISBN == "" || in.QuickLink == "" {
		return nil, fmt.Errorf("%w: title, isbn and quickLink are required", common.ErrorValidation)
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	book, err := s.repomanager.Books(s.db).FindOrCreate(ctx, &models.Book{
		Title:       in.Title,
		ISBN:        in.ISBN,
		QuickLink:   in.QuickLink,
		Tags:        in.Tags,
		CreatedByID: createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("error adding book: %w", err)
	}
	return book, nil
}

func (s *LibraryService) GetBookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.Books(s.db).GetByISBN(ctx, isbn)
}

func (s *LibraryService) ListUserBooks(ctx context.Context, userID int64) ([]*models.UserBook, error) {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.UsersBooks(s.db).ListByUser(ctx, userID)
}

func (s *LibraryService) GetUserBook(ctx context.Context, userID, bookID int64) (*models.UserBook, error) {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.UsersBooks(s.db).Get(ctx, userID, bookID)
}

// AddUserBook puts an existing catalogue book on the user's shelf. A missing
// book yields common.ErrorNotFound, a book already on the shelf
// common.ErrorAlreadyExists.
func (s *LibraryService) AddUserBook(ctx context.Context, userID, bookID int64, in UserBookInput) (*models.UserBook, error) {
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	var result *models.UserBook
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Books(tx).GetByID(ctx, bookID); err != nil {
			return err
		}

		repo := s.repomanager.UsersBooks(tx)
		if _, err := repo.Create(ctx, &models.UserBook{
			UserID:       userID,
			BookID:       bookID,
			UserRating:   in.UserRating,
			DateStarted:  in.DateStarted,
			DateFinished: in.DateFinished,
			UserNotes:    in.UserNotes,
		}); err != nil {
			return err
		}

		var err error
		result, err = repo.Get(ctx, userID, bookID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error adding book to library: %w", err)
	}
	return result, nil
}

// UpdateUserBook overwrites rating, dates and notes of an entry already on
// the user's shelf.
func (s *LibraryService) UpdateUserBook(ctx context.Context, userID, bookID int64, in UserBookInput) (*models.UserBook, error) {
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	repo := s.repomanager.UsersBooks(s.db)
	if _, err := repo.Update(ctx, &models.UserBook{
		UserID:       userID,
		BookID:       bookID,
		UserRating:   in.UserRating,
		DateStarted:  in.DateStarted,
		DateFinished: in.DateFinished,
		UserNotes:    in.UserNotes,
	}); err != nil {
		return nil, fmt.Errorf("error updating library entry: %w", err)
	}
	return repo.Get(ctx, userID, bookID)
}

func (s *LibraryService) RemoveUserBook(ctx context.Context, userID, bookID int64) error {
	ctx, cancel := dbx.StoreContext(ctx, s.dbTimeout)
	defer cancel()

	return s.repomanager.UsersBooks(s.db).Delete(ctx, userID, bookID)
}
