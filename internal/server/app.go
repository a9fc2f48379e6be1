// Package server wires configuration, storage, services and the REST API
// into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rest"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/sweeper"
)

// Seams for tests.
var (
	openDB               = repomanager.OpenDB
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newObjectPutter      = func(ctx context.Context, c *config.Config) (services.ObjectPutter, error) {
		return services.NewS3Client(ctx, c)
	}
	healthCheckTimeout = 3 * time.Second
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	router  http.Handler
	sweeper *sweeper.Sweeper
}

// NewApp opens the database, applies pending migrations and builds every
// service. The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	router, err := newRouter(ctx, c, db, rm, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sw := sweeper.New(rm.RefreshTokens(db), c.SweepInterval, c.DBTimeout, time.Now, logger)

	return &App{config: c, logger: logger, db: db, router: router, sweeper: sw}, nil
}

func newRouter(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (http.Handler, error) {
	issuer, err := auth.NewTokenIssuer(c.AccessTokenSecret, c.RefreshTokenSecret,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token issuer error: %w", err)
	}

	putter, err := newObjectPutter(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	limit, err := rest.NewIPRateLimiter(c.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", c.RateLimit, err)
	}

	users := services.NewUserService(db, rm, auth.NewBcryptHasher(c.BcryptCost), c.DBTimeout)
	sessions := services.NewSessionService(db, rm, users, issuer, time.Now, c.DBTimeout)
	library := services.NewLibraryService(db, rm, time.Now, c.DBTimeout)
	tokens := services.NewRegisterTokenService(db, rm, c.DBTimeout)
	imports := services.NewImportService(putter, c.S3Bucket, logger)

	return rest.NewRouter(rest.RouterConfig{
		Auth:          rest.NewAuthHandler(sessions, logger),
		Users:         rest.NewUserHandler(users, tokens, logger),
		Library:       rest.NewLibraryHandler(library, imports, logger),
		Health:        rest.NewHealthHandler(db, healthCheckTimeout),
		RequireAuth:   rest.Authenticator(sessions, logger),
		AuthRateLimit: limit,
		Secure:        rest.NewSecure(c.Development),
		CORSOrigins:   c.AllowedOrigins(),
		Metrics:       true,
		Logger:        logger,
	}), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startRESTServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves the API and sweeps expired refresh tokens until ctx is
// cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startRESTServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}

func (app *App) Close() error {
	return app.db.Close()
}
