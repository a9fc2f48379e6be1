package usersbooks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listQuery   = `(?s)^SELECT\s+ub\.id.*FROM\s+users_books\s+ub\s+JOIN\s+books\s+b\s+ON\s+b\.id\s*=\s*ub\.book_id\s+WHERE\s+ub\.user_id\s*=\s*\$1\s+ORDER\s+BY\s+ub\.id$`
	getQuery    = `(?s)^SELECT\s+ub\.id.*FROM\s+users_books\s+ub\s+JOIN\s+books\s+b.*WHERE\s+ub\.user_id\s*=\s*\$1\s+AND\s+ub\.book_id\s*=\s*\$2$`
	insertQuery = `(?s)^INSERT\s+INTO\s+users_books\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at,\s*updated_at$`
	updateQuery = `(?s)^UPDATE\s+users_books\s+SET\s+user_rating\s*=\s*\$3.*WHERE\s+user_id\s*=\s*\$1\s+AND\s+book_id\s*=\s*\$2\s+RETURNING\s+id,\s*created_at,\s*updated_at$`
	deleteQuery = `(?s)^DELETE\s+FROM\s+users_books\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+book_id\s*=\s*\$2$`
)

var joinedColumns = []string{
	"id", "user_id", "book_id", "user_rating", "date_started", "date_finished",
	"user_notes", "created_at", "updated_at",
	"id", "title", "isbn", "tags", "quick_link", "created_by_id", "created_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	started := now.Add(-48 * time.Hour)
	mock.ExpectQuery(listQuery).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(joinedColumns).
			AddRow(1, 2, 10, 8, started, nil, "great", now, now, 10, "Dune", "111", "{scifi}", "q", 2, now).
			AddRow(2, 2, 11, nil, nil, nil, nil, now, now, 11, "Emma", "222", "{}", "q2", nil, now))

	got, err := repo.ListByUser(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].UserRating)
	assert.Equal(t, 8, *got[0].UserRating)
	assert.Equal(t, models.StatusReading, got[0].Status())
	assert.Equal(t, "Dune", got[0].Book.Title)
	assert.Equal(t, []string{"scifi"}, got[0].Book.Tags)

	assert.Nil(t, got[1].UserRating)
	assert.Nil(t, got[1].UserNotes)
	assert.Equal(t, models.StatusWantToRead, got[1].Status())
}

func TestListByUser_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQuery).WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows(joinedColumns))

	got, err := repo.ListByUser(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).WithArgs(int64(2), int64(10)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 2, 10)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rating := 9
	now := time.Now()
	mock.ExpectQuery(insertQuery).
		WithArgs(int64(2), int64(10), 9, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(5, now, now))

	got, err := repo.Create(context.Background(), &models.UserBook{UserID: 2, BookID: 10, UserRating: &rating})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.UserBook{UserID: 2, BookID: 10})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	notes := "reread"
	now := time.Now()
	mock.ExpectQuery(updateQuery).
		WithArgs(int64(2), int64(10), nil, nil, nil, "reread").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(5, now, now))

	got, err := repo.Update(context.Background(), &models.UserBook{UserID: 2, BookID: 10, UserNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(updateQuery).WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), &models.UserBook{UserID: 2, BookID: 10})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQuery).WithArgs(int64(2), int64(10)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), 2, 10))
}
