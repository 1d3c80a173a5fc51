package controller

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotLoggedIn is returned by actions that need a session.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNotAdmin is returned by admin actions when the identity is not the admin id.
	ErrNotAdmin = errors.New("admin panel is not available for this user")

	// ErrNoUserSelected is returned by admin entry actions before SelectUser.
	ErrNoUserSelected = errors.New("no user selected")

	// ErrInvalidToken is returned when the server hands out a token whose
	// payload carries no usable identity.
	ErrInvalidToken = errors.New("session token carries no identity")
)

// ValidationError aggregates field level input errors.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// errOrNil returns v as an error only when it holds field errors.
func (v *ValidationError) errOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

func required(v *ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
}
