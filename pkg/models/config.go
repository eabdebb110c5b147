package models

import "time"

// BreakerConfig holds circuit breaker settings applied per tool endpoint.
type BreakerConfig struct {
	FailThreshold int           `yaml:"fail_threshold" mapstructure:"fail_threshold"`
	Cooldown      time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	MaxCooldown   time.Duration `yaml:"max_cooldown" mapstructure:"max_cooldown"`
}

// RetryConfig holds the retry-with-backoff policy for transient tool errors.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Jitter      time.Duration `yaml:"jitter" mapstructure:"jitter"`
}

// AssistConfig holds settings for the optional LLM interpretation assist.
// The assist is best-effort: an empty APIKey disables it entirely.
type AssistConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GlobalConfig holds system-wide settings read from .todochat.yaml via Viper.
type GlobalConfig struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`

	// FuzzyThreshold is the minimum similarity score for accepting a
	// fuzzy task-reference match.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`

	// TurnTimeout bounds one full chat turn, including all retries.
	TurnTimeout time.Duration `yaml:"turn_timeout" mapstructure:"turn_timeout"`

	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Assist  AssistConfig  `yaml:"assist" mapstructure:"assist"`
}
