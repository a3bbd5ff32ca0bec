package envelope

// Status is the lifecycle state of a job. Exactly one status is active per
// job; each phase owns an in-progress, a succeeded and a failed value.
type Status string

const (
	StatusSubmitted Status = "submitted"

	StatusValidating       Status = "validating"
	StatusValidated        Status = "validated"
	StatusValidationFailed Status = "validation_failed"

	StatusExtracting       Status = "extracting"
	StatusExtracted        Status = "extracted"
	StatusExtractionFailed Status = "extraction_failed"

	StatusReducing        Status = "reducing"
	StatusReduced         Status = "reduced"
	StatusReductionFailed Status = "reduction_failed"

	StatusOptimizing         Status = "optimizing"
	StatusOptimized          Status = "optimized"
	StatusOptimizationFailed Status = "optimization_failed"

	StatusExecuting       Status = "executing"
	StatusCompleted       Status = "completed"
	StatusExecutionFailed Status = "execution_failed"

	// StatusFailed is the global failure, used by failure envelopes.
	StatusFailed Status = "failed"
)

// Phase is one stage of the job pipeline.
type Phase string

const (
	PhaseValidation   Phase = "validation"
	PhaseExtraction   Phase = "extraction"
	PhaseReduction    Phase = "reduction"
	PhaseOptimization Phase = "optimization"
	PhaseExecution    Phase = "execution"
)

type phaseStatuses struct {
	inProgress, succeeded, failed Status
}

var pipeline = []Phase{PhaseValidation, PhaseExtraction, PhaseReduction, PhaseOptimization, PhaseExecution}

var phaseTable = map[Phase]phaseStatuses{
	PhaseValidation:   {StatusValidating, StatusValidated, StatusValidationFailed},
	PhaseExtraction:   {StatusExtracting, StatusExtracted, StatusExtractionFailed},
	PhaseReduction:    {StatusReducing, StatusReduced, StatusReductionFailed},
	PhaseOptimization: {StatusOptimizing, StatusOptimized, StatusOptimizationFailed},
	PhaseExecution:    {StatusExecuting, StatusCompleted, StatusExecutionFailed},
}

// rank orders the non-failure statuses along the pipeline.
var rank = map[Status]int{
	StatusSubmitted:  0,
	StatusValidating: 1, StatusValidated: 2,
	StatusExtracting: 3, StatusExtracted: 4,
	StatusReducing: 5, StatusReduced: 6,
	StatusOptimizing: 7, StatusOptimized: 8,
	StatusExecuting: 9, StatusCompleted: 10,
}

var failures = map[Status]Phase{
	StatusValidationFailed:   PhaseValidation,
	StatusExtractionFailed:   PhaseExtraction,
	StatusReductionFailed:    PhaseReduction,
	StatusOptimizationFailed: PhaseOptimization,
	StatusExecutionFailed:    PhaseExecution,
	StatusFailed:             "",
}

// Phases returns the pipeline phases in processing order.
func Phases() []Phase {
	out := make([]Phase, len(pipeline))
	copy(out, pipeline)
	return out
}

// ParsePhase reports whether s names a pipeline phase.
func ParsePhase(s string) (Phase, bool) {
	p := Phase(s)
	_, ok := phaseTable[p]
	return p, ok
}

func (p Phase) InProgress() Status { return phaseTable[p].inProgress }
func (p Phase) Succeeded() Status  { return phaseTable[p].succeeded }
func (p Phase) Failed() Status     { return phaseTable[p].failed }

// ParseStatus reports whether s is a known status value.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

func (s Status) Valid() bool {
	if _, ok := rank[s]; ok {
		return true
	}
	_, ok := failures[s]
	return ok
}

func (s Status) String() string { return string(s) }

// IsFailure covers every per-phase failure and the global failure.
func (s Status) IsFailure() bool {
	_, ok := failures[s]
	return ok
}

// IsTerminal is true for failures and for the end of the pipeline.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s.IsFailure()
}

// Phase returns the phase a status belongs to. Submitted and the global
// failure belong to none.
func (s Status) Phase() (Phase, bool) {
	if p, ok := failures[s]; ok {
		return p, p != ""
	}
	for _, p := range pipeline {
		st := phaseTable[p]
		if s == st.inProgress || s == st.succeeded {
			return p, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether moving from s to next respects the
// lifecycle: strictly forward through the phases, or to any failure from a
// non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() || s.IsTerminal() {
		return false
	}
	if next.IsFailure() {
		return true
	}
	return rank[next] > rank[s]
}
