package contract

import (
	"errors"
	"fmt"

	"github.com/crtscope/crtscope/schema"
)

// MalformedEventError reports a raw event missing required fields. The caller
// decides whether to skip-and-log or abort the batch.
type MalformedEventError struct {
	Source schema.Source
	Key    string
	Field  string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %s event %q: missing %s", e.Source, e.Key, e.Field)
}

// SourceUnavailableError reports an unreachable upstream API/service. It is
// always caught at the aggregator boundary and converted to a zero-valued
// feature set; it must never reach the composer.
type SourceUnavailableError struct {
	Source schema.Source
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// GraphUnavailableError reports an unreachable graph store. The dependency
// impact walker converts it to a degraded result with an explicit reason.
type GraphUnavailableError struct {
	Err error
}

func (e *GraphUnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable: %v", e.Err)
}

func (e *GraphUnavailableError) Unwrap() error { return e.Err }

// ThresholdMisconfigurationError reports incident thresholds that would
// produce nonsensical output. It is fatal at startup, never at runtime.
type ThresholdMisconfigurationError struct {
	Name  string
	Value float64
	Hint  string
}

func (e *ThresholdMisconfigurationError) Error() string {
	return fmt.Sprintf("threshold %s=%g is invalid: %s", e.Name, e.Value, e.Hint)
}

// IsGraphUnavailable reports whether err wraps a GraphUnavailableError.
func IsGraphUnavailable(err error) bool {
	var target *GraphUnavailableError
	return errors.As(err, &target)
}

// IsMalformedEvent reports whether err wraps a MalformedEventError.
func IsMalformedEvent(err error) bool {
	var target *MalformedEventError
	return errors.As(err, &target)
}
