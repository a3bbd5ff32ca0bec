// Package transport defines the broker seam of the engine. Each transport
// implementation (rabbitmq, channel) lives in its own sub-package and
// registers itself with the transport registry.
package transport

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a factory.
// Closer, when set, releases the underlying connection after both have been
// closed.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Closer     io.Closer
}

// Close shuts down the subscriber, then the publisher, then the connection.
// It is safe to call on a partially built Transport.
func (t Transport) Close() error {
	var errs []error
	if t.Subscriber != nil {
		errs = append(errs, t.Subscriber.Close())
	}
	if t.Publisher != nil {
		errs = append(errs, t.Publisher.Close())
	}
	if t.Closer != nil {
		errs = append(errs, t.Closer.Close())
	}
	return errors.Join(errs...)
}

// Aborter is implemented by connection closers that can drop the broker
// connection without settling in-flight deliveries.
type Aborter interface {
	Abort() error
}

// Abort drops the connection before closing the subscriber, so deliveries
// that were neither acked nor rejected are requeued by the broker instead of
// being nacked by the subscriber's shutdown path. Without an Aborter it is
// the same as Close.
func (t Transport) Abort() error {
	var errs []error
	if a, ok := t.Closer.(Aborter); ok {
		errs = append(errs, a.Abort())
	}
	errs = append(errs, t.Close())
	return errors.Join(errs...)
}

// Builder is the function signature for creating a transport from config.
// Each transport package provides a Builder that is registered by name.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports without
// depending on the full config package.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string
	// GetServiceName is reported to the broker as the connection name.
	GetServiceName() string

	// RabbitMQ
	GetRabbitMQURL() string
	GetHeartbeat() time.Duration
	GetConnectionTimeout() time.Duration
	GetConnectMaxRetries() int
	GetConnectRetryDelay() time.Duration
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
