package dynamo

import (
	"errors"
	"fmt"
)

// ErrConfig is the kind shared by every configuration error. Match it with
// errors.Is to tell configuration failures apart from anything else.
var ErrConfig = errors.New("dynamo: configuration error")

// Specific configuration failures.
var (
	// ErrPhaseGap indicates a cycle position covered by no phase.
	ErrPhaseGap = errors.New("dynamo: phase table has a gap")

	// ErrPhaseOverlap indicates a cycle position covered by more than one phase.
	ErrPhaseOverlap = errors.New("dynamo: phase table has overlapping ranges")

	// ErrPhaseBounds indicates a phase range outside [0, cycleLength) or empty.
	ErrPhaseBounds = errors.New("dynamo: phase range out of bounds")

	// ErrNoResetPhase indicates the final range of the cycle is not the reset phase,
	// or that more than one reset phase exists.
	ErrNoResetPhase = errors.New("dynamo: cycle must end with exactly one reset phase")

	ErrUnknownCluster = errors.New("dynamo: unknown cluster")

	ErrUnknownDataset = errors.New("dynamo: unknown dataset")

	ErrDuplicateKey = errors.New("dynamo: duplicate key")

	ErrInvalidCapacity = errors.New("dynamo: capacity must be positive")

	ErrInvalidPeriod = errors.New("dynamo: clock period must be positive")

	ErrEmptyStages = errors.New("dynamo: stage list is empty")

	// ErrInvalidValue indicates a non-finite, non-positive or out-of-range value.
	ErrInvalidValue = errors.New("dynamo: invalid value")
)

// ConfigError wraps a configuration failure with the component and key that
// caused it.
type ConfigError struct {
	Component string
	Key       string
	Wrapped   error
}

// NewConfigError builds a ConfigError for component, naming key as the culprit.
func NewConfigError(component, key string, wrapped error) *ConfigError {
	return &ConfigError{Component: component, Key: key, Wrapped: wrapped}
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Component, e.Wrapped)
	}
	return fmt.Sprintf("%s %q: %v", e.Component, e.Key, e.Wrapped)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}

// Is reports every ConfigError as an ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
