package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

// ModelTier represents the model capability level
type ModelTier string

const (
	TierFast   ModelTier = "fast"   // Claude Haiku
	TierSmart  ModelTier = "smart"  // Claude Sonnet
	TierGenius ModelTier = "genius" // Claude Opus
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRetries         int           `yaml:"max_retries" validate:"gte=0,lte=20"` // Maximum retries on 429
	BaseDelay          time.Duration `yaml:"base_delay" validate:"gte=0"`         // Base delay for exponential backoff
	MaxDelay           time.Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
	TokensPerMinute    int           `yaml:"tokens_per_minute" validate:"gt=0"`
	EnableRateLimiting bool          `yaml:"enable_rate_limiting"`
}

// AgentConfig holds agent loop configuration
type AgentConfig struct {
	// MaxIterations caps model exchanges per instruction.
	MaxIterations int `yaml:"max_iterations" validate:"gte=1,lte=100"`
	// SessionTokenLimit is the TokenBudget maximum shown as used/limit.
	SessionTokenLimit int `yaml:"session_token_limit" validate:"gte=1000"`
	// ConfirmCommands asks before execute_command runs in interactive mode.
	ConfirmCommands bool `yaml:"confirm_commands"`
	// SessionTranscript keeps one conversation across interactive instructions.
	SessionTranscript bool `yaml:"session_transcript"`
	// Timeout bounds a single model exchange.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// ScriptConfig holds literate script classification settings
type ScriptConfig struct {
	ShellLanguages      []string `yaml:"shell_languages" validate:"dive,required"`
	MinInstructionWords int      `yaml:"min_instruction_words" validate:"gte=1"`
	EchoCommands        bool     `yaml:"echo_commands"`
}

// ShellConfig holds interactive shell settings
type ShellConfig struct {
	Prompt string `yaml:"prompt"`
}

// Config holds the application configuration
type Config struct {
	APIKey      string          `yaml:"-"` // From environment only
	DefaultTier ModelTier       `yaml:"default_tier" validate:"oneof=fast smart genius"`
	Model       string          `yaml:"model"` // Overrides the tier when set
	MaxTokens   int             `yaml:"max_tokens" validate:"gt=0"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Agent       AgentConfig     `yaml:"agent"`
	Script      ScriptConfig    `yaml:"script"`
	Shell       ShellConfig     `yaml:"shell"`

	// Internal: where config was loaded from
	configPath string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DefaultTier: TierSmart,
		MaxTokens:   4096,
		RateLimit: RateLimitConfig{
			MaxRetries:         5,
			BaseDelay:          1 * time.Second,
			MaxDelay:           60 * time.Second,
			TokensPerMinute:    30000,
			EnableRateLimiting: true,
		},
		Agent: AgentConfig{
			MaxIterations:     10,
			SessionTokenLimit: 200000,
			ConfirmCommands:   true,
			SessionTranscript: true,
			Timeout:           2 * time.Minute,
		},
		Script: ScriptConfig{
			ShellLanguages:      []string{"sh", "bash", "shell", "aish", "zsh", "console"},
			MinInstructionWords: 2,
			EchoCommands:        true,
		},
		Shell: ShellConfig{
			Prompt: "aish$ ",
		},
	}
}

// LoadOptions holds optional overrides applied after file loading.
type LoadOptions struct {
	// Path, when set, is the only config file considered.
	Path string
	// MaxIterations overrides agent.max_iterations when > 0.
	MaxIterations int
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions loads configuration and applies overrides.
// A missing API key is not an error: the shell runs without the agent.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	paths := getConfigPaths()
	if opts.Path != "" {
		paths = []string{opts.Path}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, aerr.ConfigLoadFailed(path, err)
			}
			cfg.configPath = path
			break
		} else if opts.Path != "" {
			return nil, aerr.ConfigLoadFailed(path, err)
		}
	}

	cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		cfg.Model = model
	}
	if opts.MaxIterations > 0 {
		cfg.Agent.MaxIterations = opts.MaxIterations
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getConfigPaths returns config file paths in priority order
func getConfigPaths() []string {
	paths := []string{
		"aish.yaml",
		".aish/config.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aish", "config.yaml"))
	}

	return paths
}

// loadFromFile loads config from a YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks field constraints, naming fields by their yaml key.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	if err := validate.Struct(c); err != nil {
		return aerr.ConfigInvalid(err)
	}
	return nil
}

// GetModel returns the Anthropic model ID for a tier
func (c *Config) GetModel(tier ModelTier) string {
	switch tier {
	case TierFast:
		return "claude-haiku-4-5-20251015"
	case TierSmart:
		return "claude-sonnet-4-5-20250929"
	case TierGenius:
		return "claude-opus-4-5-20251101"
	default:
		return "claude-sonnet-4-5-20250929"
	}
}

// GetDefaultModel returns the explicit model if set, otherwise the tier's model
func (c *Config) GetDefaultModel() string {
	if c.Model != "" {
		return c.Model
	}
	return c.GetModel(c.DefaultTier)
}

// HasAPIKey reports whether the agent layer can be enabled.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// ConfigPath returns where the config was loaded from
func (c *Config) ConfigPath() string {
	return c.configPath
}

// String renders the effective configuration without the API key.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
