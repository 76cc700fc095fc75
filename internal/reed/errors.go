package reed

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on. Call sites wrap them
// with context via fmt.Errorf("...: %w", ...) so errors.Is keeps working.
var (
	ErrTableNotFound   = errors.New("table not found")
	ErrTableExists     = errors.New("table already exists")
	ErrVersionNotFound = errors.New("version not found")
	ErrNotConfirmed    = errors.New("operation not confirmed")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateCode   = errors.New("duplicate code")
)

// IoError reports a failed filesystem operation.
type IoError struct {
	Op   string
	Path string
	Err  error
}

func (e *IoError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed row. Path and Line are zero-valued when the
// input was a bare string rather than a file.
type ParseError struct {
	Path   string
	Line   int
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %q", e.Path, e.Line, e.Reason, e.Input)
	case e.Input != "":
		return fmt.Sprintf("%s: %q", e.Reason, e.Input)
	default:
		return e.Reason
	}
}

// ValidationError reports missing or malformed required input.
type ValidationError struct {
	Field      string
	Value      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Constraint)
}

// ConfigError reports misuse of a once-initialized component: a second init,
// or a read before the first one. It is loud on purpose; an uninitialized
// cache must never read as empty.
type ConfigError struct {
	Component string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Reason)
}

// NotFoundError reports a lookup miss. errors.Is(err, ErrNotFound) reports
// true for it.
type NotFoundError struct {
	Resource string
	Context  string
}

func (e *NotFoundError) Error() string {
	if e.Context == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found (%s)", e.Resource, e.Context)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// LogCorruptedError reports a damaged version log field.
type LogCorruptedError struct {
	Path   string
	Line   int
	Reason string
}

func (e *LogCorruptedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("version log %s: line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("version log %s: %s", e.Path, e.Reason)
}

// DeltaCorruptedError reports an unreadable or checksum-failing delta
// artifact.
type DeltaCorruptedError struct {
	Timestamp uint64
	Reason    string
}

func (e *DeltaCorruptedError) Error() string {
	return fmt.Sprintf("delta %d: %s", e.Timestamp, e.Reason)
}
