package rabbitmq

import (
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/kimvieware/phaseflow/internal/runtime/metadata"
)

// ContentType is set on every published envelope.
const ContentType = "application/json"

// EnvelopeMarshaler publishes JSON envelopes persistently unless the message
// carries the transient header, which is consumed and not forwarded.
type EnvelopeMarshaler struct {
	amqp.DefaultMarshaler
}

func (m EnvelopeMarshaler) Marshal(msg *message.Message) (amqp091.Publishing, error) {
	publishing, err := m.DefaultMarshaler.Marshal(msg)
	if err != nil {
		return publishing, err
	}

	publishing.ContentType = ContentType
	publishing.DeliveryMode = amqp091.Persistent
	if msg.Metadata.Get(metadata.KeyTransient) == "true" {
		publishing.DeliveryMode = amqp091.Transient
	}
	delete(publishing.Headers, metadata.KeyTransient)

	if cid := msg.Metadata.Get(metadata.KeyCorrelationID); cid != "" {
		publishing.CorrelationId = cid
	}
	return publishing, nil
}
