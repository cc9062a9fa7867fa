package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidRating is returned when a review rating is not one of
	// again/hard/good/easy.
	ErrInvalidRating = errors.New("invalid review rating")

	// ErrInvalidSprintStatus is returned when a sprint status is not valid.
	ErrInvalidSprintStatus = errors.New("invalid sprint status")

	// ErrInvalidSprintSource is returned when a sprint source is not valid.
	ErrInvalidSprintSource = errors.New("invalid sprint source")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
