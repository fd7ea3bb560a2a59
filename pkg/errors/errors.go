package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Simulation-specific errors

var (
	// ErrValidation indicates user input failed validation (recoverable, re-prompt)
	ErrValidation = errors.New("validation failed")

	// ErrStaleSession indicates an event arrived with no matching conversation state
	ErrStaleSession = errors.New("stale conversation session")

	// ErrUpstreamUnavailable indicates the market data provider could not serve the request
	ErrUpstreamUnavailable = errors.New("market data unavailable")

	// ErrPersistence indicates a store read or write failed
	ErrPersistence = errors.New("persistence failure")

	// ErrUnauthorized indicates a trigger request carried a bad or missing secret
	ErrUnauthorized = errors.New("unauthorized")
)

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
