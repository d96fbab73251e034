package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/studybuddy/internal/auth/service"
	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
)

// User-facing messages. Internal errors never reach the client.
const (
	msgMissingFields      = "Please fill in all required fields."
	msgNotFound           = "No account found for that email."
	msgInvalidOTP         = "Invalid or expired code."
	msgInvalidCredentials = "Invalid email or password."
	msgUnverified         = "Please verify your email before logging in."
	msgDuplicate          = "An account with that email already exists."
	msgInvalidBody        = "Invalid request body."
	msgBodyTooLarge       = "Request body too large."
	msgServerError        = "Something went wrong. Please try again."
)

// writeServiceError maps an AccountService error onto a status code and a
// message. Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		httpx.WriteMessage(w, http.StatusBadRequest, msgMissingFields)
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteMessage(w, http.StatusBadRequest, msgNotFound)
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidOTP)
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteMessage(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrUnverifiedAccount):
		httpx.WriteMessage(w, http.StatusForbidden, msgUnverified)
	case errors.Is(err, service.ErrDuplicateAccount):
		httpx.WriteMessage(w, http.StatusConflict, msgDuplicate)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "op", op, "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, msgServerError)
	}
}

// decodeBody reads a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	err := httpx.DecodeJSON(w, r, v, limit)
	switch {
	case err == nil:
		return true
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	default:
		slogx.FromContext(r.Context()).Debug("bad request body", "err", err)
		httpx.WriteMessage(w, http.StatusBadRequest, msgInvalidBody)
	}
	return false
}
