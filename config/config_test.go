package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Model.MaxIters)
	assert.Equal(t, 3, cfg.Relay.ChunkSize)
	assert.Equal(t, 20*time.Millisecond, cfg.Relay.PollInterval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
model:
  provider: scripted
  max_iters: 3
relay:
  chunk_size: 8
  turn_timeout: 30s
log:
  level: debug
`), 0o600))

	t.Setenv("TASKMESH_ADDR", "")
	t.Setenv("TASKMESH_PROVIDER", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, ProviderScripted, cfg.Model.Provider)
	assert.Equal(t, 3, cfg.Model.MaxIters)
	assert.Equal(t, 8, cfg.Relay.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.Relay.TurnTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.Relay.PollInterval, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		cfg := Default()
		err := cfg.applyEnv(envMap(map[string]string{
			"TASKMESH_ADDR":            ":7000",
			"TASKMESH_MAX_ITERS":       "9",
			"TASKMESH_ALLOWED_ORIGINS": "http://a.test, http://b.test,",
			"TASKMESH_TURN_TIMEOUT":    "45s",
			"OPENAI_API_KEY":           "sk-abc",
		}))
		require.NoError(t, err)

		assert.Equal(t, ":7000", cfg.Server.Addr)
		assert.Equal(t, 9, cfg.Model.MaxIters)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, 45*time.Second, cfg.Relay.TurnTimeout)
		assert.Equal(t, "sk-abc", cfg.Model.APIKey)
	})

	t.Run("provider key follows provider", func(t *testing.T) {
		cfg := Default()
		cfg.Model.Provider = ProviderAnthropic
		require.NoError(t, cfg.applyEnv(envMap(map[string]string{
			"OPENAI_API_KEY":    "sk-openai",
			"ANTHROPIC_API_KEY": "ant-key",
		})))
		assert.Equal(t, "ant-key", cfg.Model.APIKey)
	})

	t.Run("file key wins over provider env", func(t *testing.T) {
		cfg := Default()
		cfg.Model.APIKey = "sk-file"
		require.NoError(t, cfg.applyEnv(envMap(map[string]string{"OPENAI_API_KEY": "sk-env"})))
		assert.Equal(t, "sk-file", cfg.Model.APIKey)
	})

	t.Run("bad number", func(t *testing.T) {
		cfg := Default()
		assert.Error(t, cfg.applyEnv(envMap(map[string]string{"TASKMESH_MAX_ITERS": "many"})))
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Model.APIKey = "sk-test"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Model.Provider = "llama" }},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad origin", func(c *Config) { c.Server.AllowedOrigins = []string{"not a url"} }},
		{"zero iters", func(c *Config) { c.Model.MaxIters = 0 }},
		{"zero chunk", func(c *Config) { c.Relay.ChunkSize = 0 }},
		{"zero poll", func(c *Config) { c.Relay.PollInterval = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"missing openai key", func(c *Config) { c.Model.APIKey = "" }},
		{"placeholder key", func(c *Config) { c.Model.APIKey = "sk-your_openai_api_key_here" }},
		{"key without prefix", func(c *Config) { c.Model.APIKey = "abc" }},
		{"missing anthropic key", func(c *Config) {
			c.Model.Provider = ProviderAnthropic
			c.Model.APIKey = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("scripted needs no key", func(t *testing.T) {
		cfg := Default()
		cfg.Model.Provider = ProviderScripted
		assert.NoError(t, cfg.Validate())
	})
}
