package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
}

func TestParse_OverlaysDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Parse([]byte(`
log:
  level: debug
traversal:
  budget_factor: 8
report:
  format: json
  strict: true
  color: false
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := Default()
	want.Log.Level = "debug"
	want.Traversal.BudgetFactor = 8
	want.Report = ReportConfig{Format: FormatJSON, Strict: true}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty document should give defaults (-want +got):\n%s", diff)
	}
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v, want env values", cfg.Log)
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "bogus: 1\n", "field bogus not found"},
		{"bad level", "log:\n  level: loud\n", "Config.Log.Level"},
		{"bad format", "report:\n  format: xml\n", "Config.Report.Format"},
		{"budget too small", "traversal:\n  budget_factor: 0\n", "must be at least 1"},
		{"metrics without namespace", "metrics:\n  enabled: true\n  namespace: \"\"\n", "config.metrics.namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	path := filepath.Join(t.TempDir(), "flowscope.yaml")
	if err := os.WriteFile(path, []byte("metrics:\n  enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != "flowscope" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"

	cfg.Logger(&buf).Info("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("unexpected log output %q", buf.String())
	}
}
