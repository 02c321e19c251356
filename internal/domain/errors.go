package domain

import "errors"

var (
	// ErrInvalidUser is returned when the upstream does not know the username.
	ErrInvalidUser = errors.New("invalid username")

	// ErrMalformedDocument is returned when an upstream document lacks a field
	// the aggregation depends on.
	ErrMalformedDocument = errors.New("malformed document")
)
