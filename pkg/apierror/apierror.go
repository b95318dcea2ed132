package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Validation rejects bad input before any network call is made.
func Validation(message string) *APIError {
	return New("VALIDATION_ERROR", message, "", http.StatusBadRequest)
}

// InvalidToken covers bad signature, malformed structure, and expiry alike.
// A missing token is a different condition; see model.ErrNoToken.
func InvalidToken(message string) *APIError {
	return New("INVALID_TOKEN", message, "", http.StatusUnauthorized)
}

func Unauthorized(message string) *APIError {
	return New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}

func DuplicateUser(message string, details string) *APIError {
	return New("DUPLICATE_USER", message, details, http.StatusConflict)
}

// UpstreamAuth signals a failed service-credential exchange with the store.
func UpstreamAuth(message string, details string) *APIError {
	return New("UPSTREAM_AUTH", message, details, http.StatusBadGateway)
}

func UpstreamQuery(message string, details string) *APIError {
	return New("UPSTREAM_QUERY", message, details, http.StatusBadGateway)
}

func UpstreamWrite(message string, details string) *APIError {
	return New("UPSTREAM_WRITE", message, details, http.StatusBadGateway)
}
