package chatapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Transport errors. Every error returned by Client matches exactly one of them.
var (
	ErrNetwork    = errors.New("network error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// StatusError describes a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	// Message is the server's {"error": ...} text when present.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Unwrap maps the status onto the transport taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrNetwork
	}
}
