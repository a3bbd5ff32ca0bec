package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	loggingpkg "github.com/kimvieware/phaseflow/internal/runtime/logging"
)

// TracerName identifies the spans emitted around transforms.
const TracerName = "github.com/kimvieware/phaseflow"

// TransformMiddleware wraps a Transform with cross-cutting behaviour.
type TransformMiddleware func(Transform) Transform

// MiddlewareBuilder constructs a middleware using the provided engine instance.
type MiddlewareBuilder func(*Engine) (TransformMiddleware, error)

// MiddlewareRegistration captures how a middleware should be attached to an Engine.
type MiddlewareRegistration struct {
	Name       string
	Middleware TransformMiddleware
	Builder    MiddlewareBuilder
}

// DefaultMiddlewares returns the standard middleware chain used by NewEngine.
// The first registration is the outermost.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		TracerMiddleware(),
		LogPayloadMiddleware(nil),
		RecovererMiddleware(),
	}
}

// TracerMiddleware wraps transform execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(e *Engine) (TransformMiddleware, error) {
			return tracerMiddleware(otel.Tracer(TracerName)), nil
		},
	}
}

// LogPayloadMiddleware logs the full input envelope at debug level.
func LogPayloadMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_payload",
		Builder: func(e *Engine) (TransformMiddleware, error) {
			l := logger
			if l == nil {
				l = e.Logger
			}
			if l == nil {
				return nil, errors.New("log payload middleware requires a logger")
			}
			return logPayloadMiddleware(l), nil
		},
	}
}

// RecovererMiddleware converts panics raised by the transform into errors.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Builder: func(e *Engine) (TransformMiddleware, error) {
			return recovererMiddleware(e.Logger), nil
		},
	}
}

func (e *Engine) buildMiddlewares(deps EngineDependencies) ([]TransformMiddleware, error) {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	chain := make([]TransformMiddleware, 0, len(registrations))
	for _, reg := range registrations {
		mw, err := e.resolveMiddleware(reg)
		if err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return nil, fmt.Errorf("phaseflow: middleware %s: %w", name, err)
		}
		if mw != nil {
			chain = append(chain, mw)
		}
	}
	return chain, nil
}

func (e *Engine) resolveMiddleware(reg MiddlewareRegistration) (TransformMiddleware, error) {
	switch {
	case reg.Middleware != nil:
		return reg.Middleware, nil
	case reg.Builder != nil:
		return reg.Builder(e)
	default:
		return nil, errors.New("registration requires Middleware or Builder")
	}
}

// chainTransform applies middlewares so the first one runs outermost.
func chainTransform(t Transform, middlewares []TransformMiddleware) Transform {
	for i := len(middlewares) - 1; i >= 0; i-- {
		t = middlewares[i](t)
	}
	return t
}

func tracerMiddleware(tracer trace.Tracer) TransformMiddleware {
	return func(next Transform) Transform {
		return func(ctx context.Context, job envelope.Fields) (envelope.Fields, error) {
			info, _ := JobFromContext(ctx)
			ctx, span := tracer.Start(ctx, "phaseflow.transform",
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("phaseflow.service", info.Service),
					attribute.String("phaseflow.job_id", job.JobID()),
					attribute.String("messaging.destination.name", info.Queue),
					attribute.String("messaging.message.id", info.MessageUUID),
					attribute.String("messaging.message.conversation_id", info.CorrelationID),
				),
			)
			defer span.End()

			out, err := next(ctx, job)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return out, err
		}
	}
}

func logPayloadMiddleware(logger loggingpkg.ServiceLogger) TransformMiddleware {
	return func(next Transform) Transform {
		return func(ctx context.Context, job envelope.Fields) (envelope.Fields, error) {
			info, _ := JobFromContext(ctx)
			logger.Debug("Processing job", loggingpkg.LogFields{
				"job_id":       job.JobID(),
				"message_uuid": info.MessageUUID,
				"payload":      map[string]any(job),
			})
			return next(ctx, job)
		}
	}
}

func recovererMiddleware(logger loggingpkg.ServiceLogger) TransformMiddleware {
	return func(next Transform) Transform {
		return func(ctx context.Context, job envelope.Fields) (out envelope.Fields, err error) {
			defer func() {
				if r := recover(); r != nil {
					out = nil
					err = fmt.Errorf("panic: %v", r)
					if logger != nil {
						logger.Error("Transform panicked", err, loggingpkg.LogFields{
							"job_id": job.JobID(),
							"stack":  string(debug.Stack()),
						})
					}
				}
			}()
			return next(ctx, job)
		}
	}
}
