package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("MANUSCRIPT_TEST_HOST", "db.internal")

	tests := []struct {
		in   string
		want string
	}{
		{"host: ${MANUSCRIPT_TEST_HOST}", "host: db.internal"},
		{"host: ${MANUSCRIPT_TEST_HOST:localhost}", "host: db.internal"},
		{"port: ${MANUSCRIPT_TEST_UNSET:5432}", "port: 5432"},
		{"key: ${MANUSCRIPT_TEST_UNSET:}", "key: "},
		{"key: ${MANUSCRIPT_TEST_UNSET}", "key: ${MANUSCRIPT_TEST_UNSET}"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFromAppliesFilesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	base := `
app:
  name: manuscript-editor-api
llm:
  default_provider: anthropic
  providers:
    anthropic:
      api_key: ${MANUSCRIPT_TEST_KEY:unset}
      base_url: https://api.example.test/v1
analysis:
  workers: 2
`
	staging := `
analysis:
  queue_driver: memory
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(staging), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("APP_ENV", "staging")
	t.Setenv("MANUSCRIPT_TEST_KEY", "sk-test")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if got := cfg.LLM.Providers["anthropic"].APIKey; got != "sk-test" {
		t.Errorf("api_key = %q, want sk-test", got)
	}
	if cfg.Analysis.QueueDriver != "memory" {
		t.Errorf("queue_driver = %q, want memory", cfg.Analysis.QueueDriver)
	}
	if cfg.Analysis.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Analysis.Workers)
	}
	if cfg.Analysis.LeaseTTL != 15*time.Minute {
		t.Errorf("lease_ttl = %v, want 15m", cfg.Analysis.LeaseTTL)
	}
	if cfg.Upload.MaxBytes != 10*1024*1024 {
		t.Errorf("upload.max_bytes = %d, want 10MiB", cfg.Upload.MaxBytes)
	}
	if cfg.LLM.FeedbackMaxTokens != 4000 {
		t.Errorf("feedback_max_tokens = %d, want 4000", cfg.LLM.FeedbackMaxTokens)
	}
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	if _, err := LoadFrom(t.TempDir()); err == nil {
		t.Fatalf("LoadFrom() error = nil, want missing file error")
	}
}
