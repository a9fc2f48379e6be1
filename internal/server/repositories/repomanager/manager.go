package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/books"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/registertokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/usersbooks"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a *sql.Tx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Books(db dbx.DBTX) books.Repository
	UsersBooks(db dbx.DBTX) usersbooks.Repository
	RegisterTokens(db dbx.DBTX) registertokens.Repository
}
