package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/kimvieware/phaseflow/internal/runtime/config"
	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
	idspkg "github.com/kimvieware/phaseflow/internal/runtime/ids"
	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/kimvieware/phaseflow/internal/runtime/logging"
	metadatapkg "github.com/kimvieware/phaseflow/internal/runtime/metadata"
	transportpkg "github.com/kimvieware/phaseflow/internal/runtime/transport"
)

// Keys the engine stamps into the result's metadata object.
const (
	MetadataProcessingTimeMS = "processing_time_ms"
	MetadataProcessedBy      = "processed_by"
	MetadataProcessedAt      = "processed_at"
)

const metricsShutdownTimeout = 5 * time.Second

// State is the lifecycle position of an Engine.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConsuming
	StateProcessing
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConsuming:
		return "consuming"
	case StateProcessing:
		return "processing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EngineDependencies holds the optional collaborators that the Engine can use.
// Leave fields nil to get the defaults.
type EngineDependencies struct {
	TransportFactory          transportpkg.Factory
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips the default middleware chain when true.
	Hooks                     JobHooks
	Metrics                   *Metrics
	Registerer                prometheus.Registerer // Used when Metrics is nil.
	Clock                     func() time.Time
}

// Engine consumes envelopes from the input queue one at a time, runs the
// phase transform and forwards the result to the output queue.
type Engine struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	transform Transform
	factory   transportpkg.Factory
	hooks     JobHooks
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	now       func() time.Time

	state    atomic.Int32
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	publisher  message.Publisher
	rejectNack bool
}

// NewEngine constructs an Engine for the supplied configuration. Call Run to
// start consuming.
func NewEngine(conf *configpkg.Config, log loggingpkg.ServiceLogger, transform Transform, deps EngineDependencies) (*Engine, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if transform == nil {
		return nil, errspkg.ErrTransformRequired
	}
	conf.ApplyDefaults()
	if err := configpkg.ValidateConfig(conf); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	e := &Engine{
		Conf:    conf,
		Logger:  log.With(loggingpkg.LogFields{"service": conf.ServiceName}),
		factory: deps.TransportFactory,
		hooks:   deps.Hooks,
		metrics: deps.Metrics,
		now:     deps.Clock,
		done:    make(chan struct{}),
	}
	if e.factory == nil {
		e.factory = transportpkg.DefaultFactory()
	}
	if e.now == nil {
		e.now = time.Now
	}

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if g, ok := registerer.(prometheus.Gatherer); ok {
		e.gatherer = g
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(registerer)
	}
	if err := e.metrics.Register(); err != nil {
		return nil, fmt.Errorf("phaseflow: register metrics: %w", err)
	}

	chain, err := e.buildMiddlewares(deps)
	if err != nil {
		return nil, err
	}
	e.transform = chainTransform(transform, chain)

	e.Logger.Info("Creating phase engine", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"input_queue":   conf.InputQueue,
		"output_queue":  conf.OutputQueue,
		"config":        conf.String(),
	})
	return e, nil
}

// State reports where the engine is in its lifecycle.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Done is closed once the engine reaches StateStopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Stop asks the engine to shut down and returns immediately. The delivery in
// flight, if any, is finished first. It is safe to call from a transform.
func (e *Engine) Stop() {
	for {
		cur := e.State()
		switch cur {
		case StateIdle:
			if e.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
				e.closeDone()
				return
			}
		case StateStopping, StateStopped:
			return
		default:
			if e.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
				e.mu.Lock()
				if e.cancel != nil {
					e.cancel()
				}
				e.mu.Unlock()
				return
			}
		}
	}
}

func (e *Engine) closeDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

// advance moves the engine from one state to the next unless a stop was
// requested in between.
func (e *Engine) advance(from, to State) bool {
	return e.state.CompareAndSwap(int32(from), int32(to))
}

// Run connects, declares both queues and consumes until Stop is called, ctx is
// cancelled or a result cannot be published. A graceful stop returns nil.
// Run may only be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.advance(StateIdle, StateConnecting) {
		return errspkg.ErrEngineStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	if e.State() == StateStopping {
		cancel()
	}
	e.mu.Unlock()

	var (
		transport transportpkg.Transport
		abandon   bool
	)
	defer func() {
		cancel()
		e.state.Store(int32(StateStopping))
		shutdown := transport.Close
		if abandon {
			// The unpublished delivery has to go back to the queue, not be
			// nacked by the subscriber on its way out.
			shutdown = transport.Abort
		}
		if err := shutdown(); err != nil {
			e.Logger.Error("Failed to close transport", err, nil)
		}
		e.state.Store(int32(StateStopped))
		e.closeDone()
		e.Logger.Info("Engine stopped", nil)
	}()

	transport, err := e.factory.Build(runCtx, e.Conf, loggingpkg.NewWatermillAdapter(e.Logger))
	if err != nil {
		return err
	}
	e.publisher = transport.Publisher

	caps := e.factory.Capabilities(e.Conf)
	e.rejectNack = caps.SupportsReject()
	if !e.rejectNack {
		e.Logger.Info("Transport requeues nacked deliveries, rejected jobs will be acked instead", loggingpkg.LogFields{
			"transport": caps.Name,
		})
	}

	if err := e.declareQueues(transport.Subscriber); err != nil {
		return err
	}

	deliveries, err := transport.Subscriber.Subscribe(runCtx, e.Conf.InputQueue)
	if err != nil {
		return fmt.Errorf("phaseflow: subscribe to %q: %w", e.Conf.InputQueue, err)
	}

	if e.Conf.MetricsEnabled && e.Conf.MetricsPort > 0 {
		stopMetrics := e.serveMetrics()
		defer stopMetrics()
	}

	e.advance(StateConnecting, StateConsuming)
	e.Logger.Info("Waiting for messages", loggingpkg.LogFields{"queue": e.Conf.InputQueue})

	for {
		select {
		case <-runCtx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			e.advance(StateConsuming, StateProcessing)
			err := e.handle(msg)
			e.advance(StateProcessing, StateConsuming)
			if err != nil {
				var perr *errspkg.PublishError
				abandon = errors.As(err, &perr)
				return err
			}
		}
	}
}

func (e *Engine) declareQueues(sub message.Subscriber) error {
	initializer, ok := sub.(message.SubscribeInitializer)
	if !ok {
		return nil
	}
	for _, queue := range []string{e.Conf.InputQueue, e.Conf.OutputQueue} {
		if err := initializer.SubscribeInitialize(queue); err != nil {
			var confErr *errspkg.ConfigurationError
			if errors.As(err, &confErr) {
				return confErr
			}
			return fmt.Errorf("phaseflow: declare queue %q: %w", queue, err)
		}
	}
	return nil
}

func (e *Engine) serveMetrics() func() {
	handler := promhttp.Handler()
	if e.gatherer != nil {
		handler = promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/status", e.handleStatus)

	addr := fmt.Sprintf(":%d", e.Conf.MetricsPort)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	e.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// handle runs one delivery to completion. Only a result that cannot be
// published is returned as an error; every other outcome ends in an ack or a
// reject.
func (e *Engine) handle(msg *message.Message) error {
	started := e.now()
	headers := metadatapkg.FromMessage(msg)
	correlationID := headers[metadatapkg.KeyCorrelationID]
	if correlationID == "" {
		correlationID = idspkg.CreateULID()
	}

	job := JobContext{
		Service:       e.Conf.ServiceName,
		JobID:         envelope.UnknownJobID,
		Queue:         e.Conf.InputQueue,
		MessageUUID:   msg.UUID,
		CorrelationID: correlationID,
		StartedAt:     started,
	}

	fields := envelope.Parse(msg.Payload)
	if fields == nil {
		e.Logger.Info("Discarding malformed message", loggingpkg.LogFields{
			"queue":        job.Queue,
			"message_uuid": msg.UUID,
			"size":         len(msg.Payload),
		})
		e.reject(msg)
		e.metrics.RecordDelivery(job.Service, OutcomeDiscarded)
		e.hooks.discarded(job)
		return nil
	}

	done := e.metrics.TrackInFlight(job.Service)
	defer done()

	job.JobID = fields.JobID()
	inputJobID, hasJobID := fields["job_id"]
	log := e.Logger.With(loggingpkg.LogFields{"job_id": job.JobID, "queue": job.Queue})
	log.Info("Processing job", nil)

	ctx := ContextWithJob(context.WithoutCancel(msg.Context()), job)
	job.Context = ctx
	e.hooks.start(job)

	transformStart := e.now()
	result, err := e.transform(ctx, fields)
	elapsed := e.now().Sub(transformStart)
	e.metrics.ObserveProcessing(job.Service, elapsed)

	var body []byte
	if err == nil {
		body, err = e.finalize(result, inputJobID, hasJobID, elapsed)
	}
	if err != nil {
		terr := &errspkg.TransformError{JobID: job.JobID, Phase: job.Service, Err: err}
		job.Duration = e.now().Sub(started)
		log.Error("Job failed", terr, loggingpkg.LogFields{"duration_ms": job.Duration.Milliseconds()})
		e.publishFailure(ctx, job, terr)
		e.reject(msg)
		e.metrics.RecordDelivery(job.Service, OutcomeFailed)
		e.hooks.failed(job, terr)
		return nil
	}

	if err := e.publishResult(ctx, job, body); err != nil {
		job.Duration = e.now().Sub(started)
		log.Error("Could not publish result, leaving delivery to the broker", err, nil)
		e.metrics.RecordDelivery(job.Service, OutcomePublishFailed)
		e.hooks.failed(job, err)
		return err
	}

	msg.Ack()
	job.Duration = e.now().Sub(started)
	log.Info("Job completed", loggingpkg.LogFields{"duration_ms": job.Duration.Milliseconds()})
	e.metrics.RecordDelivery(job.Service, OutcomeSucceeded)
	e.hooks.done(job)
	return nil
}

// finalize checks the transform result and stamps the processing metadata.
func (e *Engine) finalize(result envelope.Fields, inputJobID any, hasJobID bool, elapsed time.Duration) ([]byte, error) {
	if result == nil {
		return nil, errspkg.ErrEmptyResult
	}

	if got, ok := result["job_id"]; !ok || got == nil {
		if hasJobID {
			result["job_id"] = inputJobID
		}
	} else if hasJobID {
		before := envelope.Fields{"job_id": inputJobID}.JobID()
		after := result.JobID()
		if before != after {
			return nil, fmt.Errorf("%w: %s became %s", errspkg.ErrJobIDChanged, before, after)
		}
	}

	meta, ok, err := result.Object("metadata")
	if err != nil {
		return nil, errspkg.ErrMetadataNotObject
	}
	if !ok {
		meta = envelope.Fields{}
	}
	meta[MetadataProcessingTimeMS] = elapsed.Milliseconds()
	meta[MetadataProcessedBy] = e.Conf.ServiceName
	meta[MetadataProcessedAt] = envelope.FormatTimestamp(e.now())
	result["metadata"] = map[string]any(meta)

	body, err := jsoncodec.Marshal(map[string]any(result))
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return body, nil
}

func (e *Engine) publishOptions(job JobContext) PublishOptions {
	return PublishOptions{
		Persistent: !e.Conf.TransientMessages,
		Headers: metadatapkg.New(
			metadatapkg.KeyCorrelationID, job.CorrelationID,
			metadatapkg.KeyJobID, job.JobID,
			metadatapkg.KeyProcessedBy, job.Service,
		),
	}
}

// publishResult sends body to the output queue, retrying with exponential
// backoff. The body is already encoded so every attempt sends the same bytes.
func (e *Engine) publishResult(ctx context.Context, job JobContext, body []byte) error {
	opts := e.publishOptions(job)
	attempts := 0

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.Conf.PublishRetryInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		msg := message.NewMessage(idspkg.CreateULID(), body)
		opts.Headers.Apply(msg)
		if !opts.Persistent {
			msg.Metadata.Set(metadatapkg.KeyTransient, "true")
		}
		msg.SetContext(ctx)
		return struct{}{}, e.publisher.Publish(e.Conf.OutputQueue, msg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.Conf.PublishMaxRetries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.metrics.RecordPublishRetry(job.Service)
			e.Logger.Error("Publish failed, retrying", err, loggingpkg.LogFields{
				"job_id":   job.JobID,
				"queue":    e.Conf.OutputQueue,
				"attempt":  attempts,
				"retry_in": next.String(),
			})
		}),
	)
	if err != nil {
		return &errspkg.PublishError{JobID: job.JobID, Queue: e.Conf.OutputQueue, Attempts: attempts, Err: err}
	}
	return nil
}

// publishFailure makes a single attempt to report the failure downstream.
func (e *Engine) publishFailure(ctx context.Context, job JobContext, terr *errspkg.TransformError) {
	failure := envelope.NewFailure(job.JobID, job.Service, terr.Message(), e.now())
	err := Publish(ctx, e.publisher, e.Conf.OutputQueue, failure, e.publishOptions(job))
	e.metrics.RecordFailureEnvelope(job.Service, err == nil)
	if err != nil {
		e.Logger.Error("Could not publish failure envelope", err, loggingpkg.LogFields{
			"job_id": job.JobID,
			"queue":  e.Conf.OutputQueue,
		})
	}
}

// reject removes a delivery without reprocessing it. Transports whose nack
// requeues get an ack instead.
func (e *Engine) reject(msg *message.Message) {
	if e.rejectNack {
		msg.Nack()
		return
	}
	msg.Ack()
}
