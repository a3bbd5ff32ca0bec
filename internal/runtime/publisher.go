package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
	idspkg "github.com/kimvieware/phaseflow/internal/runtime/ids"
	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/kimvieware/phaseflow/internal/runtime/metadata"
)

// PublishOptions controls how a payload is handed to the broker.
type PublishOptions struct {
	// Persistent asks for a delivery that survives a broker restart.
	Persistent bool
	// Headers travel next to the body as broker message headers.
	Headers metadatapkg.Headers
}

// NewMessage JSON-encodes payload into a Watermill message carrying opts.
func NewMessage(payload any, opts PublishOptions) (*message.Message, error) {
	if payload == nil {
		return nil, errspkg.ErrPayloadRequired
	}

	body, err := jsoncodec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := message.NewMessage(idspkg.CreateULID(), body)
	opts.Headers.Apply(msg)
	if !opts.Persistent {
		msg.Metadata.Set(metadatapkg.KeyTransient, "true")
	}
	return msg, nil
}

// Publish encodes payload and sends it to queue. Delivery is fire-and-forget:
// no publisher confirm is awaited.
func Publish(ctx context.Context, publisher message.Publisher, queue string, payload any, opts PublishOptions) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if queue == "" {
		return errspkg.ErrQueueRequired
	}

	msg, err := NewMessage(payload, opts)
	if err != nil {
		return err
	}

	if ctx != nil {
		msg.SetContext(ctx)
	}

	return publisher.Publish(queue, msg)
}
