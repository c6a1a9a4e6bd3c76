// Package config loads the taskmesh server configuration from an optional
// YAML file and environment overrides, and validates it before startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configurations that must not be started.
var ErrInvalidConfig = errors.New("invalid configuration")

// Providers supported by the model section.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderScripted  = "scripted"
)

const placeholderKey = "your_openai_api_key_here"

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Relay  RelayConfig  `yaml:"relay"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,url"`
	// RateLimit caps chat requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=0"`
}

// ModelConfig selects and configures the language model.
type ModelConfig struct {
	Provider    string  `yaml:"provider" validate:"required,oneof=openai anthropic scripted"`
	// Name selects the model; empty means the provider default.
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxIters    int     `yaml:"max_iters" validate:"gte=1,lte=50"`
}

// RelayConfig tunes event streaming.
type RelayConfig struct {
	ChunkSize    int           `yaml:"chunk_size" validate:"gte=1,lte=1024"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
	TurnTimeout  time.Duration `yaml:"turn_timeout" validate:"gte=0"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
			RateBurst:      10,
		},
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.2,
			MaxIters:    5,
		},
		Relay: RelayConfig{
			ChunkSize:    3,
			PollInterval: 20 * time.Millisecond,
			TurnTimeout:  2 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("TASKMESH_ADDR", &c.Server.Addr)
	str("TASKMESH_PROVIDER", &c.Model.Provider)
	str("TASKMESH_MODEL", &c.Model.Name)
	str("TASKMESH_BASE_URL", &c.Model.BaseURL)
	str("TASKMESH_LOG_LEVEL", &c.Log.Level)
	str("TASKMESH_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("TASKMESH_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}

	if v, ok := lookup("TASKMESH_MAX_ITERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKMESH_MAX_ITERS: %w", err)
		}
		c.Model.MaxIters = n
	}

	if v, ok := lookup("TASKMESH_TURN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKMESH_TURN_TIMEOUT: %w", err)
		}
		c.Relay.TurnTimeout = d
	}

	// Provider specific keys only fill in a key the file left empty.
	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case ProviderOpenAI:
			str("OPENAI_API_KEY", &c.Model.APIKey)
		case ProviderAnthropic:
			str("ANTHROPIC_API_KEY", &c.Model.APIKey)
		}
	}
	str("TASKMESH_API_KEY", &c.Model.APIKey)

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and provider credentials. Every returned
// error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return c.checkCredentials()
}

func (c Config) checkCredentials() error {
	key := strings.TrimSpace(c.Model.APIKey)

	switch c.Model.Provider {
	case ProviderOpenAI:
		if key == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrInvalidConfig)
		}
		if strings.Contains(strings.ToLower(key), placeholderKey) || !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("%w: OPENAI_API_KEY appears to be invalid", ErrInvalidConfig)
		}
	case ProviderAnthropic:
		if key == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrInvalidConfig)
		}
	}

	return nil
}
