package rabbitmq

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	amqp091 "github.com/rabbitmq/amqp091-go"

	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
)

// QueueDeclarer is the part of *amqp091.Channel used to declare queues.
type QueueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// Declare ensures queue exists. Declaring an existing queue with the same
// properties is a no-op; a conflicting declaration surfaces as
// *errors.ConfigurationError.
func Declare(ch QueueDeclarer, queue string, durable bool) error {
	if queue == "" {
		return errspkg.ErrQueueRequired
	}
	if _, err := ch.QueueDeclare(queue, durable, false, false, false, nil); err != nil {
		var amqpErr *amqp091.Error
		if errors.As(err, &amqpErr) && amqpErr.Code == amqp091.PreconditionFailed {
			return &errspkg.ConfigurationError{Queue: queue, Err: err}
		}
		return fmt.Errorf("phaseflow: declare queue %q: %w", queue, err)
	}
	return nil
}

// TopologyBuilder declares every queue the subscriber or publisher touches
// through Declare. Queues are bound to the default exchange implicitly.
type TopologyBuilder struct{}

func (TopologyBuilder) BuildTopology(channel *amqp091.Channel, params amqp.BuildTopologyParams, config amqp.Config, logger watermill.LoggerAdapter) error {
	if err := Declare(channel, params.QueueName, config.Queue.Durable); err != nil {
		return err
	}
	logger.Debug("Queue declared", watermill.LogFields{"queue": params.QueueName, "durable": config.Queue.Durable})
	return nil
}

func (TopologyBuilder) ExchangeDeclare(channel *amqp091.Channel, exchangeName string, config amqp.Config) error {
	if exchangeName == "" {
		return nil
	}
	return channel.ExchangeDeclare(
		exchangeName,
		config.Exchange.Type,
		config.Exchange.Durable,
		config.Exchange.AutoDeleted,
		config.Exchange.Internal,
		config.Exchange.NoWait,
		config.Exchange.Arguments,
	)
}
