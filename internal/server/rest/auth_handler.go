package rest

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
)

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	sessions *services.SessionService
	validate *validator.Validate
	logger   logging.Logger
}

func NewAuthHandler(sessions *services.SessionService, logger logging.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, validate: validator.New(), logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username" validate:"required,max=255"`
		Password string `json:"password" validate:"required,max=1024"`
	}
	if err := decodeJSON(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password are required")
		return
	}

	res, err := h.sessions.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		recordLogin(false)
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	recordLogin(true)

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"user":         res.User.Public(),
	})
}

// RefreshToken takes the refresh token from the Authorization header and
// answers with a new access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "refresh token not found")
		return
	}

	access, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken),
			errors.Is(err, common.ErrTokenExpired),
			errors.Is(err, common.ErrTokenRevoked):
			writeErr(w, http.StatusForbidden, ErrCodeInvalidToken, "invalid refresh token")
		default:
			writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// Logout revokes the caller's refresh token in the body, if any.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken" validate:"max=4096"`
	}
	if err := decodeJSON(w, r, h.validate, &body); err != nil && !errors.Is(err, errEmptyBody) {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if err := h.sessions.Logout(r.Context(), u.ID, body.RefreshToken); err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "Authenticated", "user": u.Public()})
}
