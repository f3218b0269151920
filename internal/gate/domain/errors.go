package domain

import (
	"errors"
	"fmt"
)

// Per-call guard errors. Both are recovered by failing closed: the evaluation
// returns a refuse Decision carrying the cause instead of propagating.
var (
	// ErrInputTooLarge is returned when a submission exceeds the configured
	// maximum evaluation size.
	ErrInputTooLarge = errors.New("submission exceeds maximum evaluation size")

	// ErrMatchTimeout is returned when pattern evaluation does not complete
	// within the configured per-evaluation timeout.
	ErrMatchTimeout = errors.New("pattern evaluation timed out")
)

// ConfigError reports a malformed rule set at load time. It is fatal:
// the process must not serve with a partially loaded rule set.
type ConfigError struct {
	Path string // rule file the error originated from, if known
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rule set config error: %v", e.Err)
	}
	return fmt.Sprintf("rule set config error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
