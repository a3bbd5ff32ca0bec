// Package envelope defines the message wrapper exchanged between pipeline
// services and its lifecycle statuses.
package envelope

import (
	"fmt"
	"time"

	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
	idspkg "github.com/kimvieware/phaseflow/internal/runtime/ids"
	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
)

// TimestampLayout renders UTC instants with microsecond precision and a
// trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

const recordName = "envelope"

// Envelope is the standard job message. JobID is stable across the whole
// pipeline; every service rewrites Status and adds to Metadata.
type Envelope struct {
	JobID     string `json:"job_id"`
	Status    Status `json:"status"`
	Data      Fields `json:"data"`
	Metadata  Fields `json:"metadata"`
	Timestamp string `json:"timestamp"`
}

// FailureEnvelope is the minimal message published when a phase fails.
type FailureEnvelope struct {
	JobID     string `json:"job_id"`
	Status    Status `json:"status"`
	Error     string `json:"error"`
	Phase     string `json:"phase"`
	Timestamp string `json:"timestamp"`
}

// FormatTimestamp renders t in the wire layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Now returns the current instant in the wire layout.
func Now() string {
	return FormatTimestamp(time.Now())
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return idspkg.NewJobID()
}

// New returns an envelope with empty payloads stamped with the current time.
func New(jobID string, status Status) Envelope {
	return Envelope{
		JobID:     jobID,
		Status:    status,
		Data:      Fields{},
		Metadata:  Fields{},
		Timestamp: Now(),
	}
}

// NewFailure builds the failure envelope for jobID raised by phase.
func NewFailure(jobID, phase string, cause string, at time.Time) FailureEnvelope {
	return FailureEnvelope{
		JobID:     jobID,
		Status:    StatusFailed,
		Error:     cause,
		Phase:     phase,
		Timestamp: FormatTimestamp(at),
	}
}

// Fields returns the portable form of e.
func (e Envelope) Fields() Fields {
	data := e.Data
	if data == nil {
		data = Fields{}
	}
	meta := e.Metadata
	if meta == nil {
		meta = Fields{}
	}
	return Fields{
		"job_id":    e.JobID,
		"status":    string(e.Status),
		"data":      map[string]any(data),
		"metadata":  map[string]any(meta),
		"timestamp": e.Timestamp,
	}
}

// FromFields decodes the portable form. Missing or mistyped job_id and status
// are errors; data, metadata and timestamp fall back to their defaults.
func FromFields(f Fields) (Envelope, error) {
	if f == nil {
		return Envelope{}, errspkg.NewDecodeError(recordName, "", "not an object")
	}
	r := NewReader(recordName, f)

	jobID, err := r.RequiredString("job_id")
	if err != nil {
		return Envelope{}, err
	}
	rawStatus, err := r.RequiredString("status")
	if err != nil {
		return Envelope{}, err
	}
	status, ok := ParseStatus(rawStatus)
	if !ok {
		return Envelope{}, errspkg.NewDecodeError(recordName, "status", fmt.Sprintf("unknown status %q", rawStatus))
	}
	data, err := r.OptionalObject("data")
	if err != nil {
		return Envelope{}, err
	}
	meta, err := r.OptionalObject("metadata")
	if err != nil {
		return Envelope{}, err
	}
	ts, err := r.OptionalString("timestamp", "")
	if err != nil {
		return Envelope{}, err
	}
	if ts == "" {
		ts = Now()
	}

	return Envelope{
		JobID:     jobID,
		Status:    status,
		Data:      data,
		Metadata:  meta,
		Timestamp: ts,
	}, nil
}

// Encode renders e as the JSON wire body.
func (e Envelope) Encode() ([]byte, error) {
	return jsoncodec.Marshal(e.Fields())
}

// Decode strictly decodes a JSON wire body.
func Decode(body []byte) (Envelope, error) {
	f := Parse(body)
	if f == nil {
		return Envelope{}, errspkg.NewDecodeError(recordName, "", "body is not a JSON object")
	}
	return FromFields(f)
}

// Parse decodes a wire body into Fields. It returns nil, never an error, for
// anything that is not a JSON object so callers can discard the delivery.
func Parse(body []byte) Fields {
	obj, err := jsoncodec.UnmarshalObject(body)
	if err != nil {
		return nil
	}
	return Fields(obj)
}

func (e Envelope) String() string {
	return fmt.Sprintf("JobMessage(job_id=%s, status=%s)", e.JobID, e.Status)
}
