// Package phaseflow is a small layer on top of Watermill that runs one phase
// of a staged job pipeline. A phase service consumes JSON job envelopes from
// an input queue, applies its Transform and publishes the enriched envelope to
// the next queue. Jobs that fail produce a failure envelope on the same output
// queue and are rejected so the broker does not redeliver them.
//
// Engine hosts the consume-transform-publish loop. It reads the target
// transport (RabbitMQ or Go channels) from Config, declares the input and
// output queues, stamps processing metadata on every result and exposes
// Prometheus metrics plus a /status document. A minimal setup fills Config,
// picks a Transform (AdvanceTransform covers services that only move a job to
// their phase's succeeded status) and calls Engine.Run; see cmd/phaseworker for
// a runnable worker.
//
// # Transports
//
//   - channel: In-memory Go channels for tests and local pipelines
//   - rabbitmq: AMQP durable queues with manual acknowledgement
//
// Further transports can be added through RegisterTransport.
//
// # Job lifecycle
//
// Statuses move strictly forward through the phases validation, extraction,
// reduction, optimization and execution. Each phase has an in-progress, a
// succeeded and a failed status; failed statuses and "completed" are terminal.
//
// # Middleware
//
// Every transform runs inside a middleware chain. DefaultMiddlewares adds an
// OpenTelemetry span, debug payload logging and panic recovery. Custom
// middleware is appended through EngineDependencies.Middlewares.
//
// # Hooks
//
// JobHooks observe the lifecycle of each delivery: start, completion, failure
// and malformed-message discards. LoggingHooks and AlertingHooks are ready-made
// implementations, and JobHooks.Merge combines several.
package phaseflow
