package domain

import "errors"

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownPair is returned when a trading pair is not configured.
	// The generator has no fallback price, so callers must surface it.
	ErrUnknownPair = errors.New("unknown pair")

	// ErrUnknownVenue is returned when a venue is not configured.
	ErrUnknownVenue = errors.New("unknown venue")

	// ErrUnknownStrategy is returned when an MEV strategy id cannot be parsed.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrInsufficientBalance is returned when a paper account cannot fund a fill.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyExecuted is returned when an opportunity is executed twice.
	ErrAlreadyExecuted = errors.New("opportunity already executed")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
