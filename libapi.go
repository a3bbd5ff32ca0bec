package phaseflow

import (
	runtimepkg "github.com/kimvieware/phaseflow/internal/runtime"
	configpkg "github.com/kimvieware/phaseflow/internal/runtime/config"
	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
	idspkg "github.com/kimvieware/phaseflow/internal/runtime/ids"
	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/kimvieware/phaseflow/internal/runtime/logging"
	metadatapkg "github.com/kimvieware/phaseflow/internal/runtime/metadata"
	"github.com/kimvieware/phaseflow/internal/runtime/records"
	transportpkg "github.com/kimvieware/phaseflow/internal/runtime/transport"
	newtransport "github.com/kimvieware/phaseflow/transport"
)

type (
	Config             = configpkg.Config
	Engine             = runtimepkg.Engine
	EngineDependencies = runtimepkg.EngineDependencies
	EngineState        = runtimepkg.State
	EngineStatus       = runtimepkg.EngineStatus
	Transport          = transportpkg.Transport
	TransportFactory   = transportpkg.Factory
	TransportFunc      = transportpkg.FactoryFunc

	Transform              = runtimepkg.Transform
	TransformMiddleware    = runtimepkg.TransformMiddleware
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	PublishOptions = runtimepkg.PublishOptions
	Headers        = metadatapkg.Headers

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Envelope and lifecycle
	Fields          = envelope.Fields
	Envelope        = envelope.Envelope
	FailureEnvelope = envelope.FailureEnvelope
	Status          = envelope.Status
	Phase           = envelope.Phase

	// Domain records
	Language   = records.Language
	SUTInfo    = records.SUTInfo
	Trajectory = records.Trajectory
	Edge       = records.Edge
	EdgeSet    = records.EdgeSet

	// Job lifecycle hooks
	JobContext = runtimepkg.JobContext
	JobHooks   = runtimepkg.JobHooks

	// Engine metrics
	Metrics = runtimepkg.Metrics

	// Error types
	DecodeError           = errspkg.DecodeError
	ConnectionError       = errspkg.ConnectionError
	ConfigurationError    = errspkg.ConfigurationError
	TransformError        = errspkg.TransformError
	PublishError          = errspkg.PublishError
	ConfigValidationError = errspkg.ConfigValidationError

	// Transport capabilities
	Capabilities = transportpkg.Capabilities

	// Modular transport types
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewEngine      = runtimepkg.NewEngine
	DefaultConfig  = configpkg.Default
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	EnvelopeTransform = runtimepkg.EnvelopeTransform
	AdvanceTransform  = runtimepkg.AdvanceTransform
	ContextWithJob    = runtimepkg.ContextWithJob
	JobFromContext    = runtimepkg.JobFromContext

	DefaultMiddlewares   = runtimepkg.DefaultMiddlewares
	TracerMiddleware     = runtimepkg.TracerMiddleware
	LogPayloadMiddleware = runtimepkg.LogPayloadMiddleware
	RecovererMiddleware  = runtimepkg.RecovererMiddleware

	// Job lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	AlertingHooks = runtimepkg.AlertingHooks

	NewMetrics = runtimepkg.NewMetrics

	Publish    = runtimepkg.Publish
	NewMessage = runtimepkg.NewMessage

	// Envelope helpers
	NewEnvelope    = envelope.New
	NewFailure     = envelope.NewFailure
	EnvelopeFields = envelope.FromFields
	DecodeEnvelope = envelope.Decode
	Parse          = envelope.Parse
	NewJobID       = envelope.NewJobID
	Phases         = envelope.Phases
	ParseStatus    = envelope.ParseStatus
	ParsePhase     = envelope.ParsePhase

	// Records
	ParseLanguage       = records.ParseLanguage
	DetectLanguage      = records.DetectLanguage
	SUTInfoFromFields   = records.SUTInfoFromFields
	DescribeFiles       = records.DescribeFiles
	NewTrajectory       = records.NewTrajectory
	TrajectoryFromField = records.TrajectoryFromFields
	NewEdgeSet          = records.NewEdgeSet

	// Transport capabilities and registry
	DefaultTransportFactory  = transportpkg.DefaultFactory
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	GetCapabilities          = newtransport.GetCapabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode

	ErrConfigRequired      = errspkg.ErrConfigRequired
	ErrLoggerRequired      = errspkg.ErrLoggerRequired
	ErrTransformRequired   = errspkg.ErrTransformRequired
	ErrServiceNameRequired = errspkg.ErrServiceNameRequired
	ErrInputQueueRequired  = errspkg.ErrInputQueueRequired
	ErrOutputQueueRequired = errspkg.ErrOutputQueueRequired
	ErrPublisherRequired   = errspkg.ErrPublisherRequired
	ErrPayloadRequired     = errspkg.ErrPayloadRequired
	ErrQueueRequired       = errspkg.ErrQueueRequired
	ErrEngineStarted       = errspkg.ErrEngineStarted
	ErrEmptyResult         = errspkg.ErrEmptyResult
	ErrJobIDChanged        = errspkg.ErrJobIDChanged
	ErrMetadataNotObject   = errspkg.ErrMetadataNotObject

	NewLogger            = loggingpkg.New
	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	DiscardLogger        = loggingpkg.Discard

	NewHeaders = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Header keys - use these constants for standard broker headers.
const (
	HeaderCorrelationID = metadatapkg.KeyCorrelationID
	HeaderJobID         = metadatapkg.KeyJobID
	HeaderProcessedBy   = metadatapkg.KeyProcessedBy
)

// Job statuses, in pipeline order.
const (
	StatusSubmitted          = envelope.StatusSubmitted
	StatusValidating         = envelope.StatusValidating
	StatusValidated          = envelope.StatusValidated
	StatusValidationFailed   = envelope.StatusValidationFailed
	StatusExtracting         = envelope.StatusExtracting
	StatusExtracted          = envelope.StatusExtracted
	StatusExtractionFailed   = envelope.StatusExtractionFailed
	StatusReducing           = envelope.StatusReducing
	StatusReduced            = envelope.StatusReduced
	StatusReductionFailed    = envelope.StatusReductionFailed
	StatusOptimizing         = envelope.StatusOptimizing
	StatusOptimized          = envelope.StatusOptimized
	StatusOptimizationFailed = envelope.StatusOptimizationFailed
	StatusExecuting          = envelope.StatusExecuting
	StatusCompleted          = envelope.StatusCompleted
	StatusExecutionFailed    = envelope.StatusExecutionFailed
	StatusFailed             = envelope.StatusFailed
)

// Pipeline phases.
const (
	PhaseValidation   = envelope.PhaseValidation
	PhaseExtraction   = envelope.PhaseExtraction
	PhaseReduction    = envelope.PhaseReduction
	PhaseOptimization = envelope.PhaseOptimization
	PhaseExecution    = envelope.PhaseExecution
)

// Engine lifecycle states.
const (
	StateIdle       = runtimepkg.StateIdle
	StateConnecting = runtimepkg.StateConnecting
	StateConsuming  = runtimepkg.StateConsuming
	StateProcessing = runtimepkg.StateProcessing
	StateStopping   = runtimepkg.StateStopping
	StateStopped    = runtimepkg.StateStopped
)

// Supported source languages.
const (
	LanguagePython  = records.LanguagePython
	LanguageC       = records.LanguageC
	LanguageCPP     = records.LanguageCPP
	LanguageJava    = records.LanguageJava
	LanguageUnknown = records.LanguageUnknown
)
