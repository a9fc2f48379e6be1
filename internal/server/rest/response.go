package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
)

// API error codes returned in JSON {"error": "...", "code": "..."}.
const (
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeValidation         = "validation_failed"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeForbidden          = "forbidden"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeUnavailable        = "storage_unavailable"
	ErrCodeInternal           = "internal_error"
)

// writeErr sends {"error": message, "code": errCode}. An empty errCode is
// derived from the status.
func writeErr(w http.ResponseWriter, status int, errCode string, message string) {
	if errCode == "" {
		errCode = defaultErrCode(status)
	}
	writeJSON(w, status, map[string]string{"error": message, "code": errCode})
}

func defaultErrCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusPreconditionFailed:
		return ErrCodeValidation
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case http.StatusServiceUnavailable:
		return ErrCodeUnavailable
	default:
		return ErrCodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceErr maps a service error onto a status. validationStatus lets
// routes that historically answer 412 for bad input keep doing so.
func writeServiceErr(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error, validationStatus int) {
	switch {
	case errors.Is(err, common.ErrStorageUnavailable):
		logger.Warn(r.Context(), "storage unavailable", "error", err)
		writeErr(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage unavailable, retry later")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid credentials")
	case errors.Is(err, common.ErrorValidation):
		writeErr(w, validationStatus, "", err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeErr(w, http.StatusNotFound, "", "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeErr(w, http.StatusConflict, "", "already exists")
	case errors.Is(err, common.ErrorForbidden):
		writeErr(w, http.StatusForbidden, "", "forbidden")
	default:
		logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
