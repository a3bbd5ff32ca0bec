package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/kimvieware/phaseflow/internal/runtime/logging"
)

// JobContext provides information about a job execution to hooks.
type JobContext struct {
	// Service is the name of the engine processing the job.
	Service string
	// JobID is the job_id of the envelope, or "unknown" when it carries none.
	JobID string
	// Queue is the queue the delivery was received from.
	Queue string
	// MessageUUID is the unique identifier of the delivery.
	MessageUUID string
	// CorrelationID ties the delivery to the messages it produced.
	CorrelationID string
	// Context is the context the transform ran with.
	Context context.Context
	// StartedAt is when the engine started processing the delivery.
	StartedAt time.Time
	// Duration is how long the job took (only set in OnJobDone and OnJobError).
	Duration time.Duration
}

// JobHooks defines callbacks for job lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type JobHooks struct {
	// OnJobStart is called before the transform is invoked.
	OnJobStart func(ctx JobContext)

	// OnJobDone is called once the result was published and the delivery acked.
	OnJobDone func(ctx JobContext)

	// OnJobError is called when the transform failed and the delivery was
	// rejected, or when the result could not be published.
	OnJobError func(ctx JobContext, err error)

	// OnJobDiscarded is called for deliveries whose body is not a JSON object.
	// No transform runs for them.
	OnJobDiscarded func(ctx JobContext)
}

// Merge combines two JobHooks, creating a new JobHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h JobHooks) Merge(other JobHooks) JobHooks {
	return JobHooks{
		OnJobStart:     chainHooks(h.OnJobStart, other.OnJobStart),
		OnJobDone:      chainHooks(h.OnJobDone, other.OnJobDone),
		OnJobError:     chainErrorHooks(h.OnJobError, other.OnJobError),
		OnJobDiscarded: chainHooks(h.OnJobDiscarded, other.OnJobDiscarded),
	}
}

func chainHooks(a, b func(JobContext)) func(JobContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(JobContext, error)) func(JobContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

func (h JobHooks) start(ctx JobContext) {
	if h.OnJobStart != nil {
		h.OnJobStart(ctx)
	}
}

func (h JobHooks) done(ctx JobContext) {
	if h.OnJobDone != nil {
		h.OnJobDone(ctx)
	}
}

func (h JobHooks) failed(ctx JobContext, err error) {
	if h.OnJobError != nil {
		h.OnJobError(ctx, err)
	}
}

func (h JobHooks) discarded(ctx JobContext) {
	if h.OnJobDiscarded != nil {
		h.OnJobDiscarded(ctx)
	}
}

// LoggingHooks returns pre-built hooks that log job lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) JobHooks {
	fields := func(ctx JobContext) loggingpkg.LogFields {
		return loggingpkg.LogFields{
			"service":        ctx.Service,
			"job_id":         ctx.JobID,
			"queue":          ctx.Queue,
			"message_uuid":   ctx.MessageUUID,
			"correlation_id": ctx.CorrelationID,
		}
	}
	return JobHooks{
		OnJobStart: func(ctx JobContext) {
			logger.Info("Job started", fields(ctx))
		},
		OnJobDone: func(ctx JobContext) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Info("Job completed", f)
		},
		OnJobError: func(ctx JobContext, err error) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Error("Job failed", err, f)
		},
		OnJobDiscarded: func(ctx JobContext) {
			logger.Info("Discarded malformed message", fields(ctx))
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on job errors.
func AlertingHooks(alertFunc func(ctx JobContext, err error)) JobHooks {
	return JobHooks{
		OnJobError: alertFunc,
	}
}
