package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
)

type RouterConfig struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Library *LibraryHandler
	Health  http.Handler

	// RequireAuth resolves the bearer access token, see Authenticator.
	RequireAuth func(http.Handler) http.Handler
	// AuthRateLimit guards login and signup. Nil disables.
	AuthRateLimit func(http.Handler) http.Handler
	Secure        func(http.Handler) http.Handler
	CORSOrigins   []string
	Metrics       bool
	Logger        logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	r.Use(CORS(cfg.CORSOrigins))

	limited := cfg.AuthRateLimit
	if limited == nil {
		limited = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/login", cfg.Auth.Login)
		r.Post("/refresh-token", cfg.Auth.RefreshToken)
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireAuth)
			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/check-status", cfg.Auth.CheckStatus)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.With(limited).Post("/signup", cfg.Users.Signup)
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireAuth)
			r.Get("/role/{id}", cfg.Users.Role)
			r.Get("/{id}", cfg.Users.Get)
		})
	})

	r.Route("/register-token", func(r chi.Router) {
		r.Post("/validate", cfg.Users.ValidateRegisterToken)
		r.With(cfg.RequireAuth, RequireAdmin).Post("/create", cfg.Users.CreateRegisterToken)
	})

	r.Route("/books", func(r chi.Router) {
		r.Use(cfg.RequireAuth)
		r.Post("/", cfg.Library.AddBook)
		r.Post("/storygraph/import", cfg.Library.ImportStoryGraph)
		r.Get("/{isbn}", cfg.Library.GetBook)
	})

	r.Route("/users-books/{userId}", func(r chi.Router) {
		r.Use(cfg.RequireAuth, RequireSelfOrAdmin)
		r.Get("/", cfg.Library.ListUserBooks)
		r.Get("/{bookId}", cfg.Library.GetUserBook)
		r.Post("/{bookId}", cfg.Library.AddUserBook)
		r.Patch("/{bookId}", cfg.Library.UpdateUserBook)
		r.Delete("/{bookId}", cfg.Library.RemoveUserBook)
	})

	return r
}
