package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrConfigRequired", ErrConfigRequired, "phaseflow: configuration is required"},
		{"ErrLoggerRequired", ErrLoggerRequired, "phaseflow: logger is required"},
		{"ErrTransformRequired", ErrTransformRequired, "phaseflow: transform function is required"},
		{"ErrServiceNameRequired", ErrServiceNameRequired, "phaseflow: service name is required"},
		{"ErrInputQueueRequired", ErrInputQueueRequired, "phaseflow: input queue is required"},
		{"ErrOutputQueueRequired", ErrOutputQueueRequired, "phaseflow: output queue is required"},
		{"ErrPublisherRequired", ErrPublisherRequired, "phaseflow: publisher is required"},
		{"ErrQueueRequired", ErrQueueRequired, "phaseflow: queue is required"},
		{"ErrPayloadRequired", ErrPayloadRequired, "phaseflow: payload is required"},
		{"ErrEngineStarted", ErrEngineStarted, "phaseflow: engine already started"},
		{"ErrEmptyResult", ErrEmptyResult, "phaseflow: transform returned no result"},
		{"ErrJobIDChanged", ErrJobIDChanged, "phaseflow: transform changed job_id"},
		{"ErrMetadataNotObject", ErrMetadataNotObject, "phaseflow: result metadata is not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDecodeError(t *testing.T) {
	err := NewDecodeError("envelope", "job_id", "missing required field")
	assert.Equal(t, `phaseflow: decode envelope: field "job_id": missing required field`, err.Error())

	noField := NewDecodeError("trajectory", "", "not an object")
	assert.Equal(t, "phaseflow: decode trajectory: not an object", noField.Error())
}

func TestConnectionErrorNamesAttempts(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := error(&ConnectionError{Endpoint: "amqp://localhost:5672/", Attempts: 3, Err: inner})

	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.ErrorIs(t, err, inner)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 3, connErr.Attempts)
}

func TestConfigurationErrorUnwraps(t *testing.T) {
	inner := errors.New("PRECONDITION_FAILED")
	err := &ConfigurationError{Queue: "jobs.validated", Err: inner}

	assert.Contains(t, err.Error(), `"jobs.validated"`)
	assert.ErrorIs(t, err, inner)
}

func TestTransformErrorKeepsMessage(t *testing.T) {
	err := &TransformError{JobID: "xyz", Phase: "validator", Err: errors.New("syntax error")}

	assert.Equal(t, "syntax error", err.Message())
	assert.Contains(t, err.Error(), "job xyz")
	assert.Empty(t, (&TransformError{}).Message())
}

func TestPublishError(t *testing.T) {
	inner := errors.New("channel closed")
	err := &PublishError{JobID: "abc", Queue: "out", Attempts: 4, Err: inner}

	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.ErrorIs(t, err, inner)
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, NewConfigValidationError(nil))
	})

	t.Run("wraps error correctly", func(t *testing.T) {
		inner := errors.New("bad config")
		err := NewConfigValidationError(inner)

		var cfgErr ConfigValidationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, inner, cfgErr.Err)
		assert.Equal(t, "phaseflow: invalid configuration: bad config", err.Error())
		assert.ErrorIs(t, err, inner)
	})
}
