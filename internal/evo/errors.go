package evo

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrMissingContext is returned by fitness functions that need injected data
	// (a distance table, a dataset) which was never supplied.
	ErrMissingContext = errors.New("missing evaluation context")
	// ErrUnsupportedStrategy is returned for strategy values the engine cannot dispatch.
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrEmptyPopulation     = errors.New("population is empty")
)

// ConfigError describes one rejected configuration field.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
