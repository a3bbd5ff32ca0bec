package rabbitmq

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/cenkalti/backoff/v5"
	amqp091 "github.com/rabbitmq/amqp091-go"

	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
)

// ConnectParams describes one broker connection and its retry budget.
type ConnectParams struct {
	URL            string
	ConnectionName string
	Heartbeat      time.Duration
	// Timeout bounds the TCP dial and AMQP handshake of each attempt.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Connect dials the broker up to MaxRetries times with a constant RetryDelay
// between attempts. It fails with *errors.ConnectionError once the attempts
// are used up or ctx is cancelled.
func Connect(ctx context.Context, params ConnectParams, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	maxRetries := params.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	endpoint := Endpoint(params.URL)
	logFields := watermill.LogFields{"endpoint": endpoint, "max_retries": maxRetries}

	amqpConfig := &amqp091.Config{
		Heartbeat:  params.Heartbeat,
		Properties: amqp091.NewConnectionProperties(),
	}
	if params.Timeout > 0 {
		amqpConfig.Dial = amqp091.DefaultDial(params.Timeout)
	}
	if params.ConnectionName != "" {
		amqpConfig.Properties.SetClientConnectionName(params.ConnectionName)
	}
	connConfig := amqp.ConnectionConfig{
		AmqpURI:    params.URL,
		AmqpConfig: amqpConfig,
		Reconnect:  amqp.DefaultReconnectConfig(),
	}

	attempts := 0
	operation := func() (*amqp.ConnectionWrapper, error) {
		attempts++
		conn, err := ConnectionFactory(connConfig, logger)
		if err != nil {
			logger.Error("Broker connection attempt failed", err, logFields.Add(watermill.LogFields{"attempt": attempts}))
			return nil, err
		}
		return conn, nil
	}

	conn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(params.RetryDelay)),
		backoff.WithMaxTries(uint(maxRetries)),
		backoff.WithMaxElapsedTime(time.Duration(maxRetries)*(params.RetryDelay+params.Timeout)+time.Minute),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Info("Retrying broker connection", logFields.Add(watermill.LogFields{"attempt": attempts, "retry_in": next.String()}))
		}),
	)
	if err != nil {
		return nil, &errspkg.ConnectionError{Endpoint: endpoint, Attempts: attempts, Err: err}
	}

	logger.Info("Connected to broker", logFields.Add(watermill.LogFields{"attempt": attempts}))
	return conn, nil
}

// Endpoint renders the host and port of an AMQP URL without credentials.
func Endpoint(url string) string {
	uri, err := amqp091.ParseURI(url)
	if err != nil {
		return "rabbitmq"
	}
	return net.JoinHostPort(uri.Host, strconv.Itoa(uri.Port))
}
