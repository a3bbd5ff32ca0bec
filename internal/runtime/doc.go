/*
Package runtime provides the processing engine shared by every pipeline phase
service.

# Architecture Overview

Each phase of the job pipeline (validation, extraction, reduction,
optimization, execution) runs as its own process. A process consumes job
envelopes from one queue, applies its phase transform and publishes the
enriched envelope to the next queue. The runtime package implements that
consume-transform-publish loop on top of Watermill.

# Package Structure

## Engine (engine.go)

The Engine wires together:
  - Transport connection (built through the transport registry)
  - Queue declaration for the input and output queues
  - A single consumer loop that handles one delivery at a time
  - The transform middleware chain
  - Metrics and status HTTP endpoints

Per delivery the engine parses the body, discards anything that is not a JSON
object, runs the transform, stamps processing metadata, publishes the result
and acks. A failing transform produces a failure envelope and a reject. A
result that cannot be published stops the engine with a PublishError so the
broker can redeliver the job elsewhere.

## Transforms and middleware (transform.go, middleware.go)

  - Transform: the phase-specific function over envelope fields
  - EnvelopeTransform: adapter for typed envelope transforms
  - AdvanceTransform: moves a job to a phase's succeeded status
  - Tracer: OpenTelemetry span around the transform
  - LogPayload: debug logging of input envelopes
  - Recoverer: panic recovery

## Hooks and metrics (hooks.go, metrics.go, status.go)

Job lifecycle hooks, Prometheus collectors under the phaseflow_engine
namespace and the JSON /status document.

# Sub-packages

  - config/: Service configuration with YAML and environment loading
  - envelope/: Job envelope, failure envelope and lifecycle statuses
  - errors/: Sentinel errors and error types
  - ids/: ULID and UUID generation
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Broker header utilities
  - records/: Domain records carried in envelope data (SUTInfo, Trajectory)
  - transport/: Transport factory over the registry (RabbitMQ, in-memory channel)

# Usage Example

	cfg := &phaseflow.Config{
		ServiceName: "extractor",
		InputQueue:  "jobs.validated",
		OutputQueue: "jobs.extracted",
	}

	engine, err := phaseflow.NewEngine(cfg, logger, extract, phaseflow.EngineDependencies{})
	if err != nil {
		return err
	}
	return engine.Run(ctx)
*/
package runtime
