package runtime

import (
	"net/http"

	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
)

// EngineStatus is the document served on /status next to /metrics.
type EngineStatus struct {
	Service     string `json:"service"`
	State       string `json:"state"`
	Transport   string `json:"transport"`
	InputQueue  string `json:"input_queue"`
	OutputQueue string `json:"output_queue"`
}

// Status reports the engine identity and lifecycle state.
func (e *Engine) Status() EngineStatus {
	return EngineStatus{
		Service:     e.Conf.ServiceName,
		State:       e.State().String(),
		Transport:   e.Conf.PubSubSystem,
		InputQueue:  e.Conf.InputQueue,
		OutputQueue: e.Conf.OutputQueue,
	}
}

// Healthy is true while the engine is consuming from its input queue.
func (e *Engine) Healthy() bool {
	switch e.State() {
	case StateConsuming, StateProcessing:
		return true
	}
	return false
}

func (e *Engine) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !e.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := jsoncodec.Encode(w, e.Status()); err != nil {
		e.Logger.Error("Failed to encode status", err, nil)
	}
}
