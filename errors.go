package synth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is wrapped by every construction-time failure.
	ErrInvalidParameter = errors.New("synth: invalid parameter")

	ErrQueueFull = errors.New("synth: event queue full")
)

// A ConfigError reports a patch that cannot be loaded.
type ConfigError struct {
	Patch  string
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	name := e.Patch
	if name == "" {
		name = "patch"
	}
	if e.Reason == "" {
		return fmt.Sprintf("synth: %s: bad %s %v", name, e.Field, e.Value)
	}
	return fmt.Sprintf("synth: %s: %s %v: %s", name, e.Field, e.Value, e.Reason)
}
