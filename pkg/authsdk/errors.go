package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is matches on status code, so callers can write
// errors.Is(err, authsdk.ErrUnverifiedAccount).
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Status-only sentinels for errors.Is.
var (
	ErrBadRequest         = &APIError{StatusCode: http.StatusBadRequest}
	ErrInvalidCredentials = &APIError{StatusCode: http.StatusUnauthorized}
	ErrUnverifiedAccount  = &APIError{StatusCode: http.StatusForbidden}
	ErrDuplicateAccount   = &APIError{StatusCode: http.StatusConflict}
	ErrRateLimited        = &APIError{StatusCode: http.StatusTooManyRequests}
	ErrServerError        = &APIError{StatusCode: http.StatusInternalServerError}
)

// parseErrorResponse turns an error reply into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var msg MessageResponse
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
}
