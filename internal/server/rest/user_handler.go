package rest

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
)

// UserHandler serves /user and /register-token.
type UserHandler struct {
	users    *services.UserService
	tokens   *services.RegisterTokenService
	validate *validator.Validate
	logger   logging.Logger
}

func NewUserHandler(users *services.UserService, tokens *services.RegisterTokenService, logger logging.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, validate: validator.New(), logger: logger}
}

// Signup creates a regular user account.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string  `json:"username" validate:"required,max=255"`
		Password string  `json:"password" validate:"required,max=1024"`
		Email    *string `json:"email" validate:"omitempty,email,max=254"`
	}
	if err := decodeJSON(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	u, err := h.users.Register(r.Context(), body.Username, body.Password, body.Email, common.RoleUser)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, u.Public())
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

// Role answers with the bare role string.
func (h *UserHandler) Role(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, u.Role)
}

func (h *UserHandler) ValidateRegisterToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token" validate:"required,max=256"`
	}
	if err := decodeJSON(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "token is required")
		return
	}
	ok, err := h.tokens.Validate(r.Context(), body.Token)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]bool{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *UserHandler) CreateRegisterToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Create(r.Context())
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
