// Package contextkit assembles bounded-size prompt contexts for language
// model calls from a growing conversation history, an optional response
// schema, and optional few-shot examples.
package contextkit

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/hrygo/contextkit/token"
)

// Default configuration values.
const (
	DefaultCompressionThreshold = 0.7
	DefaultPinRecent            = 0
	DefaultImportanceDecay      = 1.0
)

// Config holds the per-manager budget settings. Load them from the
// environment with LoadConfig or construct directly.
type Config struct {
	// MaxTokens is the total ceiling for one model call.
	MaxTokens int
	// ReserveForResponse is held back from MaxTokens for the model's reply.
	ReserveForResponse int
	// CompressionThreshold is the history/budget ratio above which callers
	// should consider compressing.
	CompressionThreshold float64
	// PinRecent and ImportanceDecay feed the pin-aware selection variant;
	// the default selection path does not read them.
	PinRecent       int
	ImportanceDecay float64
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:            token.DefaultMaxTokens,
		ReserveForResponse:   token.DefaultReserveForResponse,
		CompressionThreshold: DefaultCompressionThreshold,
		PinRecent:            DefaultPinRecent,
		ImportanceDecay:      DefaultImportanceDecay,
	}
}

// LoadConfig reads settings from CONTEXTKIT_* environment variables, with a
// best-effort .env bootstrap for direct binary execution.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("contextkit")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("max_tokens", defaults.MaxTokens)
	v.SetDefault("reserve_for_response", defaults.ReserveForResponse)
	v.SetDefault("compression_threshold", defaults.CompressionThreshold)
	v.SetDefault("pin_recent", defaults.PinRecent)
	v.SetDefault("importance_decay", defaults.ImportanceDecay)

	cfg := Config{
		MaxTokens:            v.GetInt("max_tokens"),
		ReserveForResponse:   v.GetInt("reserve_for_response"),
		CompressionThreshold: v.GetFloat64("compression_threshold"),
		PinRecent:            v.GetInt("pin_recent"),
		ImportanceDecay:      v.GetFloat64("importance_decay"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return errors.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.ReserveForResponse < 0 {
		return errors.Errorf("response reserve must not be negative, got %d", c.ReserveForResponse)
	}
	if c.ReserveForResponse >= c.MaxTokens {
		return errors.Errorf("response reserve %d leaves no room under ceiling %d",
			c.ReserveForResponse, c.MaxTokens)
	}
	if c.CompressionThreshold <= 0 || c.CompressionThreshold > 1 {
		return errors.Errorf("compression threshold must be in (0,1], got %v", c.CompressionThreshold)
	}
	if c.PinRecent < 0 {
		return errors.Errorf("pin recent must not be negative, got %d", c.PinRecent)
	}
	return nil
}
