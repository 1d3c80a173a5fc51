package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedResponse is wrapped when a 2xx response other than 204
	// does not carry valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoContent is returned by Response.Decode for a 204 response.
	ErrNoContent = errors.New("no content")
)

// APIError is returned for any non-2xx response. Body is the response text
// as received; its structure is up to the server.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.Status, body)
}

// NetworkError is returned when a request could not be sent or its response
// could not be read.
type NetworkError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
