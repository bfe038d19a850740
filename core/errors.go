package core

import (
	"errors"
	"fmt"
)

// CancelledError is the error text stored in results synthesized for jobs
// interrupted or never started because the run was cancelled.
const CancelledError = "cancelled"

// ErrCancelled is returned (wrapped) by an orchestrated run that received an
// interrupt before every job completed.
var ErrCancelled = errors.New("experiment cancelled")

// ConfigurationError reports invalid input detected before any job launches.
type ConfigurationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error for '%s': %s", e.Field, e.Message)
}

// NewConfigurationError is a small helper to build a ConfigurationError.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err (or anything it wraps) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// SpawnError reports that the training executable could not be launched.
type SpawnError struct {
	Job string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn failed for job %s: %v", e.Job, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// JobFailure reports a non-zero exit of the training executable.
type JobFailure struct {
	Job      string
	ExitCode int
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s exited with code %d", e.Job, e.ExitCode)
}

// MonitorError reports a resource sampling failure. It is only ever logged.
type MonitorError struct {
	Err error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("resource monitor unavailable: %v", e.Err)
}

func (e *MonitorError) Unwrap() error { return e.Err }
