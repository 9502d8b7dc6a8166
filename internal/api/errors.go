package api

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
)

// ValidationError reports a request that lacks required input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports that the requested key is not in the store.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return "Key not found" }

// BackendError wraps a failure of the underlying store. Its message is the
// store's own message, unchanged, so callers see what actually went wrong.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return e.Err.Error() }

func (e *BackendError) Unwrap() error { return e.Err }

// StatusCode maps an error returned by Service to an HTTP status code.
func StatusCode(err error) int {
	var (
		verr *ValidationError
		nerr *NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &nerr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps an error returned by Service to a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch StatusCode(err) {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}
