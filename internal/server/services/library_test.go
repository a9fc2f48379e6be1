package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newLibrary(t *testing.T, db *sql.DB) (*LibraryService, *repotest.Manager, *testClock, int64) {
	t.Helper()
	rm := repotest.NewManager()
	u, err := rm.Users(nil).Create(context.Background(), &models.User{Username: "alice", Role: common.RoleUser})
	require.NoError(t, err)
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewLibraryService(db, rm, clock.Now, time.Second), rm, clock, u.ID
}

func ptr[T any](v T) *T { return &v }

func TestUserBookInput_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	long := make([]rune, 1001)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		in      UserBookInput
		wantErr bool
	}{
		{name: "empty", in: UserBookInput{}},
		{name: "rating low", in: UserBookInput{UserRating: ptr(0)}, wantErr: true},
		{name: "rating high", in: UserBookInput{UserRating: ptr(11)}, wantErr: true},
		{name: "rating bounds", in: UserBookInput{UserRating: ptr(10)}},
		{name: "empty notes", in: UserBookInput{UserNotes: ptr("")}, wantErr: true},
		{name: "long notes", in: UserBookInput{UserNotes: ptr(string(long))}, wantErr: true},
		{name: "max notes", in: UserBookInput{UserNotes: ptr(string(long[:1000]))}},
		{name: "started after finished", in: UserBookInput{
			DateStarted: ptr(now.Add(-time.Hour)), DateFinished: ptr(now.Add(-2 * time.Hour)),
		}, wantErr: true},
		{name: "started in future", in: UserBookInput{DateStarted: ptr(now.Add(time.Hour))}, wantErr: true},
		{name: "started now", in: UserBookInput{DateStarted: ptr(now)}},
		{name: "same day", in: UserBookInput{DateStarted: ptr(now), DateFinished: ptr(now)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate(now)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddBook_FindOrCreateByISBN(t *testing.T) {
	s, _, _, uid := newLibrary(t, nil)
	ctx := context.Background()

	a, err := s.AddBook(ctx, BookInput{Title: "Dune", ISBN: "9780441013593", QuickLink: "q", Tags: []string{"scifi"}}, uid)
	require.NoError(t, err)
	b, err := s.AddBook(ctx, BookInput{Title: "Dune (reprint)", ISBN: "9780441013593", QuickLink: "q2"}, uid)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Dune", b.Title)

	got, err := s.GetBookByISBN(ctx, "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestAddBook_Validation(t *testing.T) {
	s, _, _, uid := newLibrary(t, nil)

	_, err := s.AddBook(context.Background(), BookInput{Title: "Dune"}, uid)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestAddUserBook_CommitsAndReturnsJoinedRow(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	s, _, clock, uid := newLibrary(t, db)
	ctx := context.Background()
	book, err := s.AddBook(ctx, BookInput{Title: "Dune", ISBN: "1", QuickLink: "q"}, uid)
	require.NoError(t, err)

	started := clock.Now().Add(-24 * time.Hour)
	ub, err := s.AddUserBook(ctx, uid, book.ID, UserBookInput{UserRating: ptr(8), DateStarted: &started})
	require.NoError(t, err)
	require.NotNil(t, ub.Book)
	assert.Equal(t, "Dune", ub.Book.Title)
	assert.Equal(t, models.StatusReading, ub.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddUserBook_MissingBookRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s, _, _, uid := newLibrary(t, db)

	_, err := s.AddUserBook(context.Background(), uid, 999, UserBookInput{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddUserBook_InvalidInputNeverOpensTx(t *testing.T) {
	db, mock := newSQLMockDB(t)
	s, _, _, uid := newLibrary(t, db)

	_, err := s.AddUserBook(context.Background(), uid, 1, UserBookInput{UserRating: ptr(42)})
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserBook(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	s, _, clock, uid := newLibrary(t, db)
	ctx := context.Background()
	book, err := s.AddBook(ctx, BookInput{Title: "Dune", ISBN: "1", QuickLink: "q"}, uid)
	require.NoError(t, err)
	_, err = s.AddUserBook(ctx, uid, book.ID, UserBookInput{})
	require.NoError(t, err)

	started := clock.Now().Add(-48 * time.Hour)
	finished := clock.Now().Add(-time.Hour)
	ub, err := s.UpdateUserBook(ctx, uid, book.ID, UserBookInput{
		DateStarted: &started, DateFinished: &finished, UserNotes: ptr("loved it"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, ub.Status())
	assert.Equal(t, "loved it", *ub.UserNotes)

	_, err = s.UpdateUserBook(ctx, uid, 999, UserBookInput{})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	future := clock.Now().Add(time.Hour)
	_, err = s.UpdateUserBook(ctx, uid, book.ID, UserBookInput{DateStarted: &future})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestListAndRemoveUserBooks(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	s, _, _, uid := newLibrary(t, db)
	ctx := context.Background()

	for _, isbn := range []string{"1", "2"} {
		book, err := s.AddBook(ctx, BookInput{Title: "T" + isbn, ISBN: isbn, QuickLink: "q"}, uid)
		require.NoError(t, err)
		_, err = s.AddUserBook(ctx, uid, book.ID, UserBookInput{})
		require.NoError(t, err)
	}

	list, err := s.ListUserBooks(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.RemoveUserBook(ctx, uid, list[0].BookID))
	require.NoError(t, s.RemoveUserBook(ctx, uid, list[0].BookID))

	list, err = s.ListUserBooks(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetUserBook(ctx, uid, 12345)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
