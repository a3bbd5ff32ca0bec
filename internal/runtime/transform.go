package runtime

import (
	"context"
	"fmt"

	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
)

// Transform is the phase-specific work run for every delivery. It receives
// the decoded envelope and returns the envelope to publish downstream.
type Transform func(ctx context.Context, job envelope.Fields) (envelope.Fields, error)

// EnvelopeTransform adapts a typed transform. Input that fails strict
// decoding is reported as a transform failure.
func EnvelopeTransform(fn func(ctx context.Context, job envelope.Envelope) (envelope.Envelope, error)) Transform {
	return func(ctx context.Context, job envelope.Fields) (envelope.Fields, error) {
		in, err := envelope.FromFields(job)
		if err != nil {
			return nil, err
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return out.Fields(), nil
	}
}

// AdvanceTransform marks a job as having passed phase without touching its
// payload.
func AdvanceTransform(phase envelope.Phase) Transform {
	return EnvelopeTransform(func(_ context.Context, job envelope.Envelope) (envelope.Envelope, error) {
		next := phase.Succeeded()
		if next == "" {
			return envelope.Envelope{}, fmt.Errorf("unknown phase %q", phase)
		}
		if !job.Status.CanTransitionTo(next) {
			return envelope.Envelope{}, fmt.Errorf("cannot move job from %s to %s", job.Status, next)
		}
		job.Status = next
		job.Timestamp = envelope.Now()
		return job, nil
	})
}

type jobContextKey struct{}

// ContextWithJob attaches the job being processed to ctx.
func ContextWithJob(ctx context.Context, job JobContext) context.Context {
	return context.WithValue(ctx, jobContextKey{}, job)
}

// JobFromContext returns the job attached by the engine, if any.
func JobFromContext(ctx context.Context) (JobContext, bool) {
	job, ok := ctx.Value(jobContextKey{}).(JobContext)
	return job, ok
}
