package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrConfigRequired      = sterrors.New("phaseflow: configuration is required")
	ErrLoggerRequired      = sterrors.New("phaseflow: logger is required")
	ErrTransformRequired   = sterrors.New("phaseflow: transform function is required")
	ErrServiceNameRequired = sterrors.New("phaseflow: service name is required")
	ErrInputQueueRequired  = sterrors.New("phaseflow: input queue is required")
	ErrOutputQueueRequired = sterrors.New("phaseflow: output queue is required")
	ErrPublisherRequired   = sterrors.New("phaseflow: publisher is required")
	ErrPayloadRequired     = sterrors.New("phaseflow: payload is required")
	ErrQueueRequired       = sterrors.New("phaseflow: queue is required")
	ErrEngineStarted       = sterrors.New("phaseflow: engine already started")
	ErrEmptyResult         = sterrors.New("phaseflow: transform returned no result")
	ErrJobIDChanged        = sterrors.New("phaseflow: transform changed job_id")
	ErrMetadataNotObject   = sterrors.New("phaseflow: result metadata is not an object")
)

// DecodeError reports a structurally invalid record: a required field that is
// missing, or a field holding the wrong type.
type DecodeError struct {
	Record string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("phaseflow: decode %s: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("phaseflow: decode %s: field %q: %s", e.Record, e.Field, e.Reason)
}

// NewDecodeError is a shorthand used by the record decoders.
func NewDecodeError(record, field, reason string) *DecodeError {
	return &DecodeError{Record: record, Field: field, Reason: reason}
}

// ConnectionError is returned once the broker stayed unreachable for the whole
// retry budget.
type ConnectionError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("phaseflow: failed to connect to %s after %d attempts", e.Endpoint, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned when the broker refuses a queue declaration,
// typically because the queue already exists with a different durability.
type ConfigurationError struct {
	Queue string
	Err   error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("phaseflow: incompatible declaration for queue %q", e.Queue)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransformError wraps a failure raised by the phase transform. Err keeps the
// transform's own message, which is what ends up in the failure envelope.
type TransformError struct {
	JobID string
	Phase string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("phaseflow: %s transform failed for job %s: %v", e.Phase, e.JobID, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Message returns the underlying transform error text.
func (e *TransformError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// PublishError reports that a successfully transformed job could not be
// published to the output queue within the retry budget.
type PublishError struct {
	JobID    string
	Queue    string
	Attempts int
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("phaseflow: publishing job %s to %q failed after %d attempts: %v", e.JobID, e.Queue, e.Attempts, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ConfigValidationError marks an invalid service configuration.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "phaseflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, returning nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
