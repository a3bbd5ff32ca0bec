package envelope

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
)

func TestNewAppliesDefaults(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	env := New("abc", StatusSubmitted)

	assert.Equal(t, "abc", env.JobID)
	assert.Equal(t, StatusSubmitted, env.Status)
	assert.NotNil(t, env.Data)
	assert.NotNil(t, env.Metadata)

	ts, err := time.Parse(TimestampLayout, env.Timestamp)
	require.NoError(t, err)
	assert.True(t, ts.After(before), "timestamp %s should be recent", env.Timestamp)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := New("abc", StatusValidated)
	env.Data["src"] = "int main() { return 0; }"
	env.Data["nested"] = map[string]any{"files": []any{"a.c", "b.c"}, "count": json.Number("2")}
	env.Metadata["processed_by"] = "validator"
	env.Timestamp = "2024-01-01T00:00:00Z"

	decoded, err := FromFields(env.Fields())
	require.NoError(t, err)
	assert.Equal(t, env, decoded)

	body, err := env.Encode()
	require.NoError(t, err)
	fromWire, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, env, fromWire)
}

func TestFromFieldsDefaults(t *testing.T) {
	env, err := FromFields(Fields{"job_id": "abc", "status": "submitted"})
	require.NoError(t, err)

	assert.Equal(t, Fields{}, env.Data)
	assert.Equal(t, Fields{}, env.Metadata)
	assert.NotEmpty(t, env.Timestamp)
}

func TestFromFieldsRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		in    Fields
		field string
	}{
		{"nil", nil, ""},
		{"missing job_id", Fields{"status": "submitted"}, "job_id"},
		{"null job_id", Fields{"job_id": nil, "status": "submitted"}, "job_id"},
		{"numeric job_id", Fields{"job_id": float64(7), "status": "submitted"}, "job_id"},
		{"missing status", Fields{"job_id": "abc"}, "status"},
		{"unknown status", Fields{"job_id": "abc", "status": "paused"}, "status"},
		{"data not object", Fields{"job_id": "abc", "status": "submitted", "data": "x"}, "data"},
		{"metadata list", Fields{"job_id": "abc", "status": "submitted", "metadata": []any{}}, "metadata"},
		{"timestamp number", Fields{"job_id": "abc", "status": "submitted", "timestamp": float64(1)}, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromFields(tt.in)
			var decodeErr *errspkg.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.field, decodeErr.Field)
			assert.Equal(t, "envelope", decodeErr.Record)
		})
	}
}

func TestParseReturnsNilForMalformedBodies(t *testing.T) {
	bodies := [][]byte{
		nil,
		[]byte(""),
		[]byte("not json"),
		[]byte("{\"job_id\": "),
		[]byte("[1,2,3]"),
		[]byte("\"abc\""),
		[]byte("null"),
		[]byte("42"),
		{0xff, 0xfe, 0x00},
	}
	for _, body := range bodies {
		assert.Nil(t, Parse(body), "body %q", body)
	}
}

func TestParseKeepsPartialObjects(t *testing.T) {
	f := Parse([]byte(`{"status":"submitted"}`))
	require.NotNil(t, f)
	assert.Equal(t, UnknownJobID, f.JobID())
}

func TestDecodeRejectsMalformedBody(t *testing.T) {
	_, err := Decode([]byte("{"))
	var decodeErr *errspkg.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestFieldsJobID(t *testing.T) {
	assert.Equal(t, "abc", Fields{"job_id": "abc"}.JobID())
	assert.Equal(t, "42", Fields{"job_id": float64(42)}.JobID())
	assert.Equal(t, "42", Fields{"job_id": json.Number("42")}.JobID())
	assert.Equal(t, UnknownJobID, Fields{"job_id": ""}.JobID())
	assert.Equal(t, UnknownJobID, Fields{"job_id": true}.JobID())
	assert.Equal(t, UnknownJobID, Fields{}.JobID())
}

func TestFieldsCloneIsDeep(t *testing.T) {
	original := Fields{
		"metadata": map[string]any{"steps": []any{"validate"}},
	}
	clone := original.Clone()
	clone["metadata"].(map[string]any)["steps"].([]any)[0] = "changed"

	assert.Equal(t, "validate", original["metadata"].(map[string]any)["steps"].([]any)[0])
	assert.Nil(t, Fields(nil).Clone())
}

func TestNewFailure(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	failure := NewFailure("xyz", "validator", "syntax error", at)

	assert.Equal(t, FailureEnvelope{
		JobID:     "xyz",
		Status:    StatusFailed,
		Error:     "syntax error",
		Phase:     "validator",
		Timestamp: "2024-01-01T00:00:00.000000Z",
	}, failure)
}

func TestEnvelopeString(t *testing.T) {
	assert.Equal(t, "JobMessage(job_id=abc, status=submitted)", New("abc", StatusSubmitted).String())
}

func TestNewJobIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewJobID(), NewJobID())
}
