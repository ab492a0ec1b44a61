package errors

import (
	stdErrors "errors"
	"fmt"
)

// ProviderError represents an unexpected HTTP status from a metadata provider
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Provider, e.Message, e.StatusCode)
}

// NewProviderError creates a ProviderError with a message derived from the status code
func NewProviderError(provider string, statusCode int) *ProviderError {
	var message string
	switch {
	case statusCode == 401 || statusCode == 403:
		message = "access denied, check the API key"
	case statusCode == 404:
		message = "endpoint not found"
	case statusCode >= 500:
		message = "provider unavailable"
	default:
		message = "unexpected response"
	}

	return &ProviderError{
		Provider:   provider,
		Message:    message,
		StatusCode: statusCode,
	}
}

// IsProviderError checks if err is a ProviderError
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return stdErrors.As(err, &providerErr)
}
