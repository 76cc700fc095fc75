package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reedcms/reedbase/internal/reed"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

const validYAML = `project:
  name: Test Site
  url: https://example.com
  description: demo project
  languages:
    default: de
    available: [de, en]
    fallback_chain: true
  routing:
    url_prefix: false
    trailing_slash: true
  templates:
    auto_reload: true
    cache_templates: false
server:
  workers: 4
  dev:
    domain: localhost
    io: 127.0.0.1:8333
    enable_cors: true
    allowed_origins: ["*"]
    keep_alive: 5
  prod:
    domain: example.com
    io: /run/reed.sock
    enable_rate_limit: true
    requests_per_minute: 600
    enable_http2: true
    keep_alive: 75
`

func TestLoad(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		cfg, err := Load(writeYAML(t, validYAML))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Project.Name != "Test Site" {
			t.Errorf("Name = %q", cfg.Project.Name)
		}
		if cfg.Project.Languages.Default != "de" {
			t.Errorf("Default = %q", cfg.Project.Languages.Default)
		}
		if len(cfg.Project.Languages.Available) != 2 {
			t.Errorf("Available = %v", cfg.Project.Languages.Available)
		}
		if !cfg.Project.Routing.TrailingSlash {
			t.Error("TrailingSlash = false, want true")
		}
		if cfg.Server.Workers != 4 {
			t.Errorf("Workers = %d", cfg.Server.Workers)
		}
		if cfg.Server.Dev.IO != "127.0.0.1:8333" {
			t.Errorf("Dev.IO = %q", cfg.Server.Dev.IO)
		}
		if cfg.Server.Prod.RequestsPerMinute != 600 {
			t.Errorf("Prod.RequestsPerMinute = %d", cfg.Server.Prod.RequestsPerMinute)
		}
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		_, err := Load(writeYAML(t, "project: [unclosed"))
		var pe *reed.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("expected ParseError, got %v", err)
		}
	})

	t.Run("NameRequired", func(t *testing.T) {
		_, err := Load(writeYAML(t, "project:\n  languages:\n    default: de\n"))
		var ve *reed.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if ve.Field != "project.name" {
			t.Errorf("Field = %q, want project.name", ve.Field)
		}
	})

	t.Run("DefaultLanguageRequired", func(t *testing.T) {
		_, err := Load(writeYAML(t, "project:\n  name: x\n"))
		var ve *reed.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if ve.Field != "project.languages.default" {
			t.Errorf("Field = %q, want project.languages.default", ve.Field)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		var ioErr *reed.IoError
		if !errors.As(err, &ioErr) {
			t.Errorf("expected IoError, got %v", err)
		}
	})
}
