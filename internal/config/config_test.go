package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
server:
  port: 9090

redis:
  addr: "localhost:6379"

providers:
  - name: openai
    api_key: "${TEST_OPENAI_KEY}"
    model: "gpt-4"
    cost_per_1k_input: 0.03
    cost_per_1k_output: 0.06
    max_tokens: 4000
    rate_limit: 100
    quality_by_task:
      text-generation: 0.9
      code-generation: 0.95

  - name: gemini
    api_key: "secret"
    model: "gemini-pro"
    cost_per_1k_input: 0.001
    cost_per_1k_output: 0.002
    max_tokens: 30000
    rate_limit: 60

routing:
  decision_cache_ttl: 30m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := LoadFromFile(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Len(t, cfg.Providers, 2)

	openai := cfg.Providers[0]
	assert.Equal(t, "sk-test-123", openai.APIKey) // env expanded
	assert.Equal(t, 0.03, openai.CostPer1KInput)
	assert.Equal(t, 100, openai.RateLimit)
	assert.Equal(t, 0.95, openai.QualityByTask["code-generation"])

	// Defaults survive partial config.
	assert.Equal(t, 30*time.Minute, cfg.Routing.DecisionCacheTTL)
	assert.Equal(t, 60*time.Second, cfg.Routing.DispatchTimeout)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Providers = []ProviderConfig{
			{Name: "openai", MaxTokens: 4000, RateLimit: 100},
		}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("no providers", func(t *testing.T) {
		cfg := base()
		cfg.Providers = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		cfg := base()
		cfg.Providers[0].Name = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate name", func(t *testing.T) {
		cfg := base()
		cfg.Providers = append(cfg.Providers, cfg.Providers[0])
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative cost", func(t *testing.T) {
		cfg := base()
		cfg.Providers[0].CostPer1KInput = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero max tokens", func(t *testing.T) {
		cfg := base()
		cfg.Providers[0].MaxTokens = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("quality out of range", func(t *testing.T) {
		cfg := base()
		cfg.Providers[0].QualityByTask = map[string]float64{"text-generation": 1.5}
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestManager_GetAndReload(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")
	path := writeConfig(t, validConfig)

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 9090, m.Get().Server.Port)

	var reloaded *Config
	done := make(chan struct{})
	m.OnChange(func(cfg *Config) {
		reloaded = cfg
		close(done)
	})

	m.reload() // direct reload keeps the test free of fsnotify timing
	select {
	case <-done:
	default:
		t.Fatal("OnChange not invoked")
	}
	assert.Equal(t, 9090, reloaded.Server.Port)
}
