// Package httpx provides the response envelope and error taxonomy shared by
// every gateway endpoint.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the gateway. Services wrap these with fmt.Errorf and
// %w so handlers can map any failure back to a status code.
var (
	// ErrUnauthenticated indicates the caller presented no valid API key.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrPermissionDenied indicates the caller's key lacks the write role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrMissingField indicates one or more required fields were absent.
	ErrMissingField = errors.New("missing required fields")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry indicates the record to be created already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrMalformedField indicates a string-encoded field failed to parse.
	ErrMalformedField = errors.New("malformed field")
	// ErrInvalidLineItem indicates a line item entry failed validation.
	ErrInvalidLineItem = errors.New("invalid line item")
	// ErrItemCreation indicates auto-creation of a line item failed.
	ErrItemCreation = errors.New("item creation failed")
)

// StatusOf maps a wrapped sentinel error to an HTTP status code. Anything
// outside the taxonomy is an internal failure.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, ErrMissingField),
		errors.Is(err, ErrMalformedField),
		errors.Is(err, ErrInvalidLineItem),
		errors.Is(err, ErrItemCreation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsInternal reports whether err falls outside the taxonomy and should be
// recorded for operator diagnosis.
func IsInternal(err error) bool {
	return StatusOf(err) == http.StatusInternalServerError
}
