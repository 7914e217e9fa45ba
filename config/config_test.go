package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultTOMLMatchesDefault(t *testing.T) {
	var cfg Config
	if _, err := toml.Decode(DefaultTOML(), &cfg); err != nil {
		t.Fatalf("default TOML does not parse: %v", err)
	}
	if diff := cmp.Diff(Default(), &cfg); diff != "" {
		t.Errorf("DefaultTOML and Default disagree (-Default +TOML):\n%s", diff)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should give defaults: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("unexpected config:\n%s", diff)
	}
}

func TestLoadFileMerges(t *testing.T) {
	path := writeConfig(t, `
[fixer]
intervalMillis = 100
sanitize = true

[live]
url = "https://www.littr.eu/api/flow/live"

[prefs]
backend = "redis"

[log]
level = "debug"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	want := Default()
	want.Fixer.IntervalMillis = 100
	want.Fixer.Sanitize = true
	want.Live.URL = "https://www.littr.eu/api/flow/live"
	want.Prefs.Backend = "redis"
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
	if cfg.Interval() != 100*time.Millisecond {
		t.Errorf("unexpected interval %v", cfg.Interval())
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad syntax", "[fixer\n", "parsing config TOML"},
		{"bad backend", "[prefs]\nbackend = \"sqlite\"\n", "unknown prefs backend"},
		{"negative interval", "[fixer]\nintervalMillis = -5\n", "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	if cfg.Interval() != 250*time.Millisecond {
		t.Errorf("interval = %v", cfg.Interval())
	}
	if cfg.ProbeInterval() != 5*time.Second {
		t.Errorf("probe interval = %v", cfg.ProbeInterval())
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil) != nil {
		t.Error("nil error should stay nil")
	}
	_, err := LoadFile(writeConfig(t, "[fixer\ninterval_ms = "))
	if err == nil {
		t.Fatal("malformed config should fail to load")
	}
	wrapped := FormatError(err)
	if !errors.Is(wrapped, err) {
		t.Error("formatted error should wrap the original")
	}
	if !strings.HasPrefix(wrapped.Error(), "configuration error:") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}
