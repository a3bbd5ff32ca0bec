package phaseflow

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestEngineExportsValidateInputs(t *testing.T) {
	if _, err := NewEngine(nil, DiscardLogger(), AdvanceTransform(PhaseValidation), EngineDependencies{}); !errors.Is(err, ErrConfigRequired) {
		t.Fatalf("expected config required error, got %v", err)
	}

	cfg := &Config{ServiceName: "validator", InputQueue: "jobs.submitted", OutputQueue: "jobs.validated"}
	if _, err := NewEngine(cfg, nil, AdvanceTransform(PhaseValidation), EngineDependencies{}); !errors.Is(err, ErrLoggerRequired) {
		t.Fatalf("expected logger required error, got %v", err)
	}
	if _, err := NewEngine(cfg, DiscardLogger(), nil, EngineDependencies{}); !errors.Is(err, ErrTransformRequired) {
		t.Fatalf("expected transform required error, got %v", err)
	}
}

func TestAdvanceTransformExport(t *testing.T) {
	out, err := AdvanceTransform(PhaseExtraction)(context.Background(), NewEnvelope("job-1", StatusValidated).Fields())
	if err != nil {
		t.Fatalf("unexpected advance error: %v", err)
	}
	if out["status"] != string(StatusExtracted) {
		t.Fatalf("expected extracted status, got %v", out["status"])
	}
}

func TestEnvelopeExports(t *testing.T) {
	env := NewEnvelope(NewJobID(), StatusSubmitted)
	body, err := env.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.JobID != env.JobID {
		t.Fatalf("expected job id %q, got %q", env.JobID, decoded.JobID)
	}

	if Parse([]byte("not json")) != nil {
		t.Fatal("expected malformed body to parse as nil")
	}

	failure := NewFailure("job-1", "validator", "syntax error", time.Unix(0, 0))
	if failure.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", failure.Status)
	}
}

func TestRecordExports(t *testing.T) {
	info := DescribeFiles(map[string][]byte{"main.py": []byte("print(1)\n")}, "main.py")
	if info.Language != LanguagePython {
		t.Fatalf("expected python, got %s", info.Language)
	}
	if DetectLanguage("Main.java") != LanguageJava {
		t.Fatal("expected java detection")
	}
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if _, err := MarshalIndent(payload, "", "  "); err != nil {
		t.Fatalf("marshal indent alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}
}

func TestHeaderExport(t *testing.T) {
	h := NewHeaders(HeaderJobID, "job-1")
	if h[HeaderJobID] != "job-1" {
		t.Fatalf("expected headers to contain job id, got %#v", h)
	}
}

func TestTransportRegistryExports(t *testing.T) {
	names := DefaultTransportRegistry.Names()
	for _, name := range []string{"channel", "rabbitmq"} {
		if !slices.Contains(names, name) {
			t.Fatalf("expected %s transport to be registered, got %v", name, names)
		}
	}
	if GetCapabilities("channel").SupportsReject() {
		t.Fatal("channel transport should not support reject")
	}
}
