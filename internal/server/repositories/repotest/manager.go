// Package repotest provides an in-memory RepositoryManager for service and
// HTTP tests. All repositories share one store regardless of the DBTX they
// are bound to, so transactions are not isolated.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/books"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/registertokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/usersbooks"
)

// Manager is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	// Err, when set, is returned by every repository call.
	Err error

	nextID         int64
	users          map[int64]*models.User
	refreshTokens  map[string]*models.RefreshToken
	books          map[int64]*models.Book
	usersBooks     map[[2]int64]*models.UserBook
	registerTokens map[string]*models.RegisterToken
}

func NewManager() *Manager {
	return &Manager{
		users:          map[int64]*models.User{},
		refreshTokens:  map[string]*models.RefreshToken{},
		books:          map[int64]*models.Book{},
		usersBooks:     map[[2]int64]*models.UserBook{},
		registerTokens: map[string]*models.RegisterToken{},
	}
}

// SetErr makes every subsequent call fail with err (nil clears it).
func (m *Manager) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// RefreshTokenCount reports how many refresh tokens are stored.
func (m *Manager) RefreshTokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refreshTokens)
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Users(dbx.DBTX) users.Repository                   { return (*userRepo)(m) }
func (m *Manager) RefreshTokens(dbx.DBTX) refreshtokens.Repository   { return (*refreshRepo)(m) }
func (m *Manager) Books(dbx.DBTX) books.Repository                   { return (*bookRepo)(m) }
func (m *Manager) UsersBooks(dbx.DBTX) usersbooks.Repository         { return (*userBookRepo)(m) }
func (m *Manager) RegisterTokens(dbx.DBTX) registertokens.Repository { return (*registerRepo)(m) }

func (m *Manager) lock(ctx context.Context) error {
	m.mu.Lock()
	if m.Err != nil {
		return m.Err
	}
	if err := ctx.Err(); err != nil {
		return dbx.Classify(err)
	}
	return nil
}

func (m *Manager) id() int64 {
	m.nextID++
	return m.nextID
}

type userRepo Manager

func (r *userRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return err
	}
	if _, ok := m.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.users, id)
	for tok, rt := range m.refreshTokens {
		if rt.UserID == id {
			delete(m.refreshTokens, tok)
		}
	}
	for k := range m.usersBooks {
		if k[0] == id {
			delete(m.usersBooks, k)
		}
	}
	return nil
}

type refreshRepo Manager

func (r *refreshRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return err
	}
	if _, ok := m.refreshTokens[token]; ok {
		return common.ErrorAlreadyExists
	}
	if _, ok := m.users[userID]; !ok {
		return common.ErrorNotFound
	}
	m.refreshTokens[token] = &models.RefreshToken{
		ID: m.id(), UserID: userID, Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	return nil
}

func (r *refreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r *refreshRepo) Delete(ctx context.Context, userID int64, token string) error {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return err
	}
	if rt, ok := m.refreshTokens[token]; ok && rt.UserID == userID {
		delete(m.refreshTokens, token)
	}
	return nil
}

func (r *refreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return 0, err
	}
	var n int64
	for tok, rt := range m.refreshTokens {
		if rt.ExpiresAt.Before(now) {
			delete(m.refreshTokens, tok)
			n++
		}
	}
	return n, nil
}

type bookRepo Manager

func (r *bookRepo) FindOrCreate(ctx context.Context, b *models.Book) (*models.Book, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	for _, existing := range m.books {
		if existing.ISBN == b.ISBN {
			cp := *existing
			return &cp, nil
		}
	}
	cp := *b
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	if cp.Tags == nil {
		cp.Tags = []string{}
	}
	m.books[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *bookRepo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	b, ok := m.books[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *bookRepo) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	for _, b := range m.books {
		if b.ISBN == isbn {
			cp := *b
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

type userBookRepo Manager

func (r *userBookRepo) ListByUser(ctx context.Context, userID int64) ([]*models.UserBook, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	out := []*models.UserBook{}
	for k, ub := range m.usersBooks {
		if k[0] == userID {
			out = append(out, m.joined(ub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userBookRepo) Get(ctx context.Context, userID, bookID int64) (*models.UserBook, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	ub, ok := m.usersBooks[[2]int64{userID, bookID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return m.joined(ub), nil
}

func (r *userBookRepo) Create(ctx context.Context, ub *models.UserBook) (*models.UserBook, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	key := [2]int64{ub.UserID, ub.BookID}
	if _, ok := m.usersBooks[key]; ok {
		return nil, common.ErrorAlreadyExists
	}
	ub.ID = m.id()
	ub.CreatedAt = time.Now()
	ub.UpdatedAt = ub.CreatedAt
	cp := *ub
	cp.Book = nil
	m.usersBooks[key] = &cp
	return ub, nil
}

func (r *userBookRepo) Update(ctx context.Context, ub *models.UserBook) (*models.UserBook, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	existing, ok := m.usersBooks[[2]int64{ub.UserID, ub.BookID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	existing.UserRating = ub.UserRating
	existing.DateStarted = ub.DateStarted
	existing.DateFinished = ub.DateFinished
	existing.UserNotes = ub.UserNotes
	existing.UpdatedAt = time.Now()
	ub.ID, ub.CreatedAt, ub.UpdatedAt = existing.ID, existing.CreatedAt, existing.UpdatedAt
	return ub, nil
}

func (r *userBookRepo) Delete(ctx context.Context, userID, bookID int64) error {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return err
	}
	delete(m.usersBooks, [2]int64{userID, bookID})
	return nil
}

// joined copies ub and attaches its book. Callers hold m.mu.
func (m *Manager) joined(ub *models.UserBook) *models.UserBook {
	cp := *ub
	if b, ok := m.books[ub.BookID]; ok {
		bc := *b
		cp.Book = &bc
	}
	return &cp
}

type registerRepo Manager

func (r *registerRepo) Create(ctx context.Context, token string) (*models.RegisterToken, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	rt := &models.RegisterToken{ID: m.id(), Token: token, CreatedAt: time.Now()}
	m.registerTokens[token] = rt
	cp := *rt
	return &cp, nil
}

func (r *registerRepo) Exists(ctx context.Context, token string) (bool, error) {
	m := (*Manager)(r)
	defer m.mu.Unlock()
	if err := m.lock(ctx); err != nil {
		return false, err
	}
	_, ok := m.registerTokens[token]
	return ok, nil
}
