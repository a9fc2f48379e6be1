package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
}

// Authenticator resolves the bearer access token to a user and stores it in
// the request context. Requests without a usable token never reach next.
func Authenticator(sessions *services.SessionService, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
				return
			}

			user, err := sessions.Authenticate(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, common.ErrStorageUnavailable):
				logger.Warn(r.Context(), "authenticate: storage unavailable", "error", err)
				writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage unavailable, retry later")
				return
			case errors.Is(err, common.ErrTokenExpired):
				writeErr(w, http.StatusUnauthorized, ErrCodeInvalidToken, "token expired")
				return
			case errors.Is(err, common.ErrInvalidToken):
				writeErr(w, http.StatusUnauthorized, ErrCodeInvalidToken, "invalid token")
				return
			default:
				logger.Error(r.Context(), "authenticate failed", "error", err)
				writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin lets through only users holding the admin role. Use after
// Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
			return
		}
		if u.Role != common.RoleAdmin {
			writeErr(w, http.StatusForbidden, ErrCodeForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelfOrAdmin guards routes carrying a {userId} path parameter: the
// caller must be that user or an admin.
func RequireSelfOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
			return
		}
		id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid user id")
			return
		}
		if u.ID != id && u.Role != common.RoleAdmin {
			writeErr(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
