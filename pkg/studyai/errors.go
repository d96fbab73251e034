package studyai

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials means no API key is configured for a direct call.
	ErrNoCredentials = errors.New("studyai: no API credentials configured")

	// ErrEmptyResponse means the provider answered with no text.
	ErrEmptyResponse = errors.New("studyai: empty response from provider")

	// ErrInvalidResponse means the provider's JSON did not have the
	// requested shape.
	ErrInvalidResponse = errors.New("studyai: invalid response from provider")
)

// ProviderError is an upstream failure, either from the provider itself or
// from the backend proxy.
type ProviderError struct {
	StatusCode int // 0 when unknown
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("studyai: provider error (%d): %s", e.StatusCode, e.Message)
	}
	return "studyai: provider error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }
