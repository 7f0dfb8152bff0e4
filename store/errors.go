package store

import "errors"

var (
	// ErrNotFound is returned when an item doesn't exist.
	ErrNotFound = errors.New("store: item not found")

	// ErrConditionFailed is returned when a conditional write's precondition
	// does not hold at write time.
	ErrConditionFailed = errors.New("store: conditional check failed")

	// ErrMissingKey is returned when an item or key lacks a primary key attribute.
	ErrMissingKey = errors.New("store: missing primary key attribute")

	// ErrUnknownTable is returned by backends that validate table names.
	ErrUnknownTable = errors.New("store: unknown table")

	// ErrUnknownIndex is returned by backends that validate index names.
	ErrUnknownIndex = errors.New("store: unknown index")
)
