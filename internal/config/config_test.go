package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")

	conf, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conf.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %q", conf.Server.Port)
	}
	if conf.Compiler.Command != "/app/ligo" {
		t.Errorf("expected default compiler command, got %q", conf.Compiler.Command)
	}
	if conf.Compiler.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", conf.Compiler.Timeout)
	}
	if conf.Compiler.Backend != BackendProcess {
		t.Errorf("expected process backend, got %q", conf.Compiler.Backend)
	}
	if !filepath.IsAbs(conf.Compiler.DataDir) {
		t.Errorf("expected absolute data dir, got %q", conf.Compiler.DataDir)
	}
	if len(conf.Cors.AllowedOrigins) != 1 || conf.Cors.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard origin, got %v", conf.Cors.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "9000")
	t.Setenv("LIGO_CMD", "docker run --rm ligo")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("JOB_TIMEOUT", "2500ms")
	t.Setenv("WORKERS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ide.ligolang.org,https://example.com")

	conf, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conf.Server.Port != "9000" {
		t.Errorf("expected port 9000, got %q", conf.Server.Port)
	}
	if conf.Compiler.Command != "docker run --rm ligo" {
		t.Errorf("unexpected command %q", conf.Compiler.Command)
	}
	if conf.Compiler.DataDir != dir {
		t.Errorf("expected data dir %q, got %q", dir, conf.Compiler.DataDir)
	}
	if conf.Compiler.Timeout != 2500*time.Millisecond {
		t.Errorf("unexpected timeout %s", conf.Compiler.Timeout)
	}
	if conf.Workers.Count != 3 {
		t.Errorf("expected 3 workers, got %d", conf.Workers.Count)
	}
	if len(conf.Cors.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", conf.Cors.AllowedOrigins)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "COMPILER_BACKEND", "podman"},
		{"zero timeout", "JOB_TIMEOUT", "0s"},
		{"malformed duration", "JOB_TIMEOUT", "ten seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoadConfigCommandDefaultsPerBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		cmd     string
		want    string
	}{
		{"process default", BackendProcess, "", DefaultCommand},
		{"process blank", BackendProcess, "   ", DefaultCommand},
		{"docker keeps image entrypoint", BackendDocker, "", ""},
		{"docker explicit", BackendDocker, "ligo", "ligo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COMPILER_BACKEND", tt.backend)
			t.Setenv("LIGO_CMD", tt.cmd)

			conf, err := LoadConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if conf.Compiler.Command != tt.want {
				t.Errorf("expected command %q, got %q", tt.want, conf.Compiler.Command)
			}
		})
	}
}
