// Package metadata holds the broker-level headers that travel next to an
// envelope body. They are transport concerns only: the envelope's own
// "metadata" object lives in the JSON body.
package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// Reserved header keys.
const (
	// KeyCorrelationID ties together every message emitted for one delivery.
	KeyCorrelationID = "correlation_id"

	// KeyJobID mirrors the envelope job_id so operators can filter on headers.
	KeyJobID = "job_id"

	// KeyProcessedBy names the service that emitted the message.
	KeyProcessedBy = "processed_by"

	// KeyTransient asks the marshaler for a non-persistent delivery mode.
	// Marshalers strip it before the message reaches the broker.
	KeyTransient = "phaseflow_transient"
)

// Headers represents the string headers carried alongside a message.
type Headers map[string]string

// Clone returns a shallow copy that is never nil.
func (h Headers) Clone() Headers {
	cloned := make(Headers, len(h))
	for k, v := range h {
		cloned[k] = v
	}
	return cloned
}

// With returns a copy containing key=value.
func (h Headers) With(key, value string) Headers {
	cloned := h.Clone()
	cloned[key] = value
	return cloned
}

// Merge returns a copy with every entry of other applied on top.
func (h Headers) Merge(other Headers) Headers {
	cloned := h.Clone()
	for k, v := range other {
		cloned[k] = v
	}
	return cloned
}

// New builds Headers from alternating key/value pairs. A trailing key without
// a value is ignored.
func New(pairs ...string) Headers {
	h := make(Headers, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		h[pairs[i]] = pairs[i+1]
	}
	return h
}

// FromMessage copies the headers of a Watermill message.
func FromMessage(msg *message.Message) Headers {
	if msg == nil {
		return Headers{}
	}
	return Headers(msg.Metadata).Clone()
}

// Apply copies h onto the metadata of msg.
func (h Headers) Apply(msg *message.Message) {
	if msg.Metadata == nil {
		msg.Metadata = make(message.Metadata, len(h))
	}
	for k, v := range h {
		msg.Metadata.Set(k, v)
	}
}
