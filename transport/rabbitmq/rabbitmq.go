// Package rabbitmq provides the RabbitMQ/AMQP transport: durable queues
// addressed by name through the default exchange, prefetch 1 and nack
// without requeue.
package rabbitmq

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/kimvieware/phaseflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "rabbitmq"

// PrefetchCount bounds unacknowledged deliveries per consumer.
const PrefetchCount = 1

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

var closeConnection = func(conn *amqp.ConnectionWrapper) error {
	return conn.Close()
}

// abortConnection drops the raw AMQP connection under the wrapper, leaving
// the wrapper itself to closeConnection.
var abortConnection = func(conn *amqp.ConnectionWrapper) error {
	if conn == nil {
		return nil
	}
	raw := conn.Connection()
	if raw == nil || raw.IsClosed() {
		return nil
	}
	return raw.Close()
}

func init() {
	Register()
}

// Register registers the RabbitMQ transport with the default registry.
func Register() {
	transport.Register(TransportName, Build, transport.RabbitMQCapabilities)
}

// NewAMQPConfig returns the Watermill AMQP configuration shared by the
// publisher and the subscriber.
func NewAMQPConfig(url, consumer string) amqp.Config {
	cfg := amqp.NewDurableQueueConfig(url)
	cfg.Consume.Qos.PrefetchCount = PrefetchCount
	cfg.Consume.NoRequeueOnNack = true
	cfg.Consume.Consumer = consumer
	cfg.Marshaler = EnvelopeMarshaler{}
	cfg.TopologyBuilder = TopologyBuilder{}
	return cfg
}

// Build connects with retry and creates the publisher and subscriber on the
// shared connection.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	url := cfg.GetRabbitMQURL()

	conn, err := Connect(ctx, ConnectParams{
		URL:            url,
		ConnectionName: cfg.GetServiceName(),
		Heartbeat:      cfg.GetHeartbeat(),
		Timeout:        cfg.GetConnectionTimeout(),
		MaxRetries:     cfg.GetConnectMaxRetries(),
		RetryDelay:     cfg.GetConnectRetryDelay(),
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	amqpConfig := NewAMQPConfig(url, cfg.GetServiceName())

	publisher, err := PublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = closeConnection(conn)
		return transport.Transport{}, fmt.Errorf("phaseflow: create rabbitmq publisher: %w", err)
	}

	subscriber, err := SubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = publisher.Close()
		_ = closeConnection(conn)
		return transport.Transport{}, fmt.Errorf("phaseflow: create rabbitmq subscriber: %w", err)
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
		Closer:     connectionCloser{conn: conn},
	}, nil
}

type connectionCloser struct {
	conn *amqp.ConnectionWrapper
}

func (c connectionCloser) Close() error {
	return closeConnection(c.conn)
}

// Abort closes the raw AMQP connection ahead of the wrapper. The broker
// requeues every unacked delivery of a lost connection, while closing the
// wrapper first would let the subscriber nack them without requeue.
func (c connectionCloser) Abort() error {
	return abortConnection(c.conn)
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RabbitMQCapabilities
}
