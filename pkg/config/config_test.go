package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bowtie.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if !cfg.Engine.SharedCenterCredit {
		t.Error("SharedCenterCredit should default to true")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  read_timeout: 3s
  cors_allowed_origins: ["https://risk.example.com"]
log:
  level: debug
store:
  backend: file
  dir: /var/lib/bowtie
  format: yaml
  compress: true
engine:
  shared_center_credit: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 {
		t.Errorf("CORS origins = %v", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want default 15s", cfg.Server.WriteTimeout)
	}
	if cfg.Store.Backend != BackendFile || cfg.Store.Dir != "/var/lib/bowtie" || !cfg.Store.Compress {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Engine.SharedCenterCredit {
		t.Error("SharedCenterCredit should be false")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BOWTIE_STORE_BACKEND", "s3")
	t.Setenv("BOWTIE_STORE_S3_BUCKET", "risk-diagrams")
	t.Setenv("BOWTIE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendS3 || cfg.Store.S3.Bucket != "risk-diagrams" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: s3
log:
  level: loud
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"store.s3.bucket", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
