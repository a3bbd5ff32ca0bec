package transport

// Capabilities describes the delivery semantics of a transport backend. The
// engine consults them at startup to warn about weaker guarantees.
type Capabilities struct {
	// Name is the human-readable name of the transport.
	Name string

	// SupportsAck indicates the transport supports explicit message acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgment.
	SupportsNack bool

	// DiscardsOnNack is true when a nacked delivery is dropped instead of
	// being requeued.
	DiscardsOnNack bool

	// SupportsPersistence indicates messages survive a broker restart.
	SupportsPersistence bool

	// SupportsPrefetch indicates the transport bounds unacknowledged
	// deliveries per consumer.
	SupportsPrefetch bool
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// SupportsReject is true when nack removes the delivery for good, which is
// what the engine expects for discarded and failed jobs.
func (c Capabilities) SupportsReject() bool {
	return c.SupportsNack && c.DiscardsOnNack
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport. A nack
	// resends the message to the same subscriber.
	ChannelCapabilities = Capabilities{
		Name:                "channel",
		SupportsAck:         true,
		SupportsNack:        true,
		DiscardsOnNack:      false,
		SupportsPersistence: false,
		SupportsPrefetch:    true,
	}

	// RabbitMQCapabilities for RabbitMQ/AMQP transport.
	RabbitMQCapabilities = Capabilities{
		Name:                "rabbitmq",
		SupportsAck:         true,
		SupportsNack:        true,
		DiscardsOnNack:      true,
		SupportsPersistence: true,
		SupportsPrefetch:    true,
	}
)

// GetCapabilities returns the capabilities for a transport by name.
// Uses the registry to look up capabilities registered by each transport package.
// Returns a zero Capabilities struct if the transport is unknown.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
