package core

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// ConfigurationManager defines the interface for loading and validating
// configuration from the .todochat.yaml file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the root directory where .todochat.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		ListenAddr:     ":8080",
		FuzzyThreshold: DefaultFuzzyThreshold,
		TurnTimeout:    500 * time.Millisecond,
		Breaker: models.BreakerConfig{
			FailThreshold: 5,
			Cooldown:      30 * time.Second,
			MaxCooldown:   2 * time.Minute,
		},
		Retry: models.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    500 * time.Millisecond,
			Jitter:      10 * time.Millisecond,
		},
		Assist: models.AssistConfig{
			Model:   "gpt-4o-mini",
			Timeout: 5 * time.Second,
		},
	}
}

// LoadGlobalConfig reads the .todochat.yaml file from the base path using
// Viper. If the file does not exist, sensible defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".todochat")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("fuzzy_threshold", cfg.FuzzyThreshold)
	v.SetDefault("turn_timeout", cfg.TurnTimeout.String())
	v.SetDefault("breaker.fail_threshold", cfg.Breaker.FailThreshold)
	v.SetDefault("breaker.cooldown", cfg.Breaker.Cooldown.String())
	v.SetDefault("breaker.max_cooldown", cfg.Breaker.MaxCooldown.String())
	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", cfg.Retry.BaseDelay.String())
	v.SetDefault("retry.max_delay", cfg.Retry.MaxDelay.String())
	v.SetDefault("retry.jitter", cfg.Retry.Jitter.String())
	v.SetDefault("assist.model", cfg.Assist.Model)
	v.SetDefault("assist.timeout", cfg.Assist.Timeout.String())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file found: return defaults, honouring the
			// API key env override.
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .todochat.yaml: %w", err)
	}

	cfg.ListenAddr = v.GetString("listen_addr")
	cfg.FuzzyThreshold = v.GetFloat64("fuzzy_threshold")
	cfg.TurnTimeout = v.GetDuration("turn_timeout")
	cfg.Breaker.FailThreshold = v.GetInt("breaker.fail_threshold")
	cfg.Breaker.Cooldown = v.GetDuration("breaker.cooldown")
	cfg.Breaker.MaxCooldown = v.GetDuration("breaker.max_cooldown")
	cfg.Retry.MaxAttempts = v.GetInt("retry.max_attempts")
	cfg.Retry.BaseDelay = v.GetDuration("retry.base_delay")
	cfg.Retry.MaxDelay = v.GetDuration("retry.max_delay")
	cfg.Retry.Jitter = v.GetDuration("retry.jitter")
	cfg.Assist.APIKey = v.GetString("assist.api_key")
	cfg.Assist.BaseURL = v.GetString("assist.base_url")
	cfg.Assist.Model = v.GetString("assist.model")
	cfg.Assist.Timeout = v.GetDuration("assist.timeout")

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets the assist API key come from the environment so it
// never has to live in the config file.
func applyEnvOverrides(cfg *models.GlobalConfig) {
	if key := os.Getenv("TODOCHAT_ASSIST_API_KEY"); key != "" {
		cfg.Assist.APIKey = key
	}
}
