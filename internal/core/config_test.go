package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadGlobalConfigDefaults(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	cfg, err := cm.LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.FuzzyThreshold != DefaultFuzzyThreshold {
		t.Errorf("FuzzyThreshold = %v, want %v", cfg.FuzzyThreshold, DefaultFuzzyThreshold)
	}
	if cfg.Breaker.FailThreshold != 5 {
		t.Errorf("FailThreshold = %d, want 5", cfg.Breaker.FailThreshold)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Assist.APIKey != "" {
		t.Errorf("APIKey = %q, want empty (assist disabled by default)", cfg.Assist.APIKey)
	}
}

func TestLoadGlobalConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `listen_addr: ":9090"
fuzzy_threshold: 0.7
turn_timeout: 2s
breaker:
  fail_threshold: 10
  cooldown: 1m
  max_cooldown: 10m
retry:
  max_attempts: 5
  base_delay: 100ms
assist:
  model: gpt-4o
  api_key: test-key
`
	if err := os.WriteFile(filepath.Join(dir, ".todochat.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfigurationManager(dir).LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.FuzzyThreshold != 0.7 {
		t.Errorf("FuzzyThreshold = %v, want 0.7", cfg.FuzzyThreshold)
	}
	if cfg.TurnTimeout != 2*time.Second {
		t.Errorf("TurnTimeout = %v, want 2s", cfg.TurnTimeout)
	}
	if cfg.Breaker.FailThreshold != 10 {
		t.Errorf("FailThreshold = %d, want 10", cfg.Breaker.FailThreshold)
	}
	if cfg.Breaker.MaxCooldown != 10*time.Minute {
		t.Errorf("MaxCooldown = %v, want 10m", cfg.Breaker.MaxCooldown)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Retry.MaxDelay != 500*time.Millisecond {
		t.Errorf("MaxDelay = %v, want the 500ms default", cfg.Retry.MaxDelay)
	}
	if cfg.Assist.Model != "gpt-4o" || cfg.Assist.APIKey != "test-key" {
		t.Errorf("Assist = %+v, want model gpt-4o with test-key", cfg.Assist)
	}
}

func TestLoadGlobalConfigEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("TODOCHAT_ASSIST_API_KEY", "env-key")

	cfg, err := NewConfigurationManager(t.TempDir()).LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Assist.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Assist.APIKey)
	}
}

func TestLoadGlobalConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".todochat.yaml"), []byte("listen_addr: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewConfigurationManager(dir).LoadGlobalConfig(); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}
