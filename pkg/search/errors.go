package search

import (
	"errors"
	"fmt"
)

// Package errors.
var (
	// ErrConfiguration is the class of setup errors. Every *ConfigError
	// matches it with errors.Is.
	ErrConfiguration = errors.New("invalid search configuration")

	// ErrCapacity is the class of visited store failures. Every
	// *CapacityError matches it with errors.Is.
	ErrCapacity = errors.New("visited store failure")

	// ErrAlreadyRun is returned when Run is called twice on a Driver.
	ErrAlreadyRun = errors.New("search driver already run")
)

// ConfigError reports an invalid setting detected before searching.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("search config %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrConfiguration and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

func configError(field, reason string, err error) error {
	return &ConfigError{Field: field, Reason: reason, Err: err}
}

// CapacityError reports a visited store operation that failed. The search
// stops rather than continue without the entry.
type CapacityError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("visited store %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrCapacity and the underlying cause.
func (e *CapacityError) Unwrap() []error {
	return []error{ErrCapacity, e.Err}
}

// IsConfigurationError returns true if err stems from invalid setup.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsCapacityError returns true if err stems from a visited store failure.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrCapacity)
}
