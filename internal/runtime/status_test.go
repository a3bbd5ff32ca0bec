package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
)

func TestHandleStatus(t *testing.T) {
	f := newEngineFixture(t, validatedTransform, nil)

	rec := httptest.NewRecorder()
	f.engine.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.start(t)
	rec = httptest.NewRecorder()
	f.engine.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	f.stop(t)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status EngineStatus
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, EngineStatus{
		Service:     "validator",
		State:       "consuming",
		Transport:   "channel",
		InputQueue:  "jobs.submitted",
		OutputQueue: "jobs.validated",
	}, status)
}

func TestHandleStatusRejectsWrites(t *testing.T) {
	f := newEngineFixture(t, validatedTransform, nil)

	rec := httptest.NewRecorder()
	f.engine.handleStatus(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestHealthy(t *testing.T) {
	e := &Engine{}
	assert.False(t, e.Healthy())

	e.state.Store(int32(StateProcessing))
	assert.True(t, e.Healthy())

	e.state.Store(int32(StateStopping))
	assert.False(t, e.Healthy())
}
