// Package errors provides structured error types for the split-specs client.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrAccessDenied    = errors.New("access denied")
	ErrSessionFinished = errors.New("session finished")
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnavailable     = errors.New("service unavailable")
	ErrNotLoggedIn     = errors.New("not logged in")
)

// TransportError is a failure to get a usable HTTP response from the API.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("network error: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("network error (status %d): %s: %v", e.StatusCode, e.Body, e.Err)
	default:
		return fmt.Sprintf("network error (status %d): %s", e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrAccessDenied for 401/403 and ErrUnavailable for gateway errors.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrUnavailable:
		switch e.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// GraphQLError is a field error reported in the "errors" array of a response.
type GraphQLError struct {
	Message string
	Path    []string
}

func (e *GraphQLError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("graphql error: %s", e.Message)
	}
	return fmt.Sprintf("graphql error at %s: %s", strings.Join(e.Path, "."), e.Message)
}

// Is maps well-known server messages onto sentinels.
func (e *GraphQLError) Is(target error) bool {
	msg := strings.ToLower(e.Message)
	switch target {
	case ErrAccessDenied:
		return strings.Contains(msg, "access denied") || strings.Contains(msg, "invalid token")
	case ErrSessionFinished:
		return strings.Contains(msg, "session finished")
	case ErrNotFound:
		return strings.Contains(msg, "not found")
	}
	return false
}

// IsAccessDenied reports whether err should force re-authentication.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		if te.StatusCode == 0 || te.StatusCode == http.StatusTooManyRequests || te.StatusCode >= 500 {
			return true
		}
	}
	return errors.Is(err, ErrUnavailable)
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return gqlErr.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Body != "" {
			return strings.TrimSpace(te.Body)
		}
	}
	return err.Error()
}
