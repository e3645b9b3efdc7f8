package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
server:
  address: "127.0.0.1"
  port: 9090
  db_path: "/tmp/me-test"
responder:
  provider: "scripted"
  model: "claude-3-7-sonnet-latest"
  max_tokens: 1024
  timeout: "30s"
  max_context_bytes: "32KB"
  scripted_latency: "250ms"
security:
  api_keys:
    - "k1"
retention:
  enabled: true
  cron: "0 3 * * *"
logging:
  level: "debug"
`

func TestParseYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(sampleYAML), &cfg))

	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, "/tmp/me-test", cfg.Server.DBPath)
	require.Equal(t, "scripted", cfg.Responder.Provider)
	require.Equal(t, 30*time.Second, cfg.Responder.Timeout.Duration())
	require.Equal(t, int64(32000), cfg.Responder.MaxContextBytes.Int64())
	require.Equal(t, 250*time.Millisecond, cfg.Responder.ScriptedLatency.Duration())
	require.Equal(t, []string{"k1"}, cfg.Security.APIKeys)
	require.True(t, cfg.Retention.Enabled)
	require.Equal(t, "0 3 * * *", cfg.Retention.Cron)
}

func TestDurationNumericSeconds(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("responder:\n  timeout: 5\n"), &cfg))
	require.Equal(t, 5*time.Second, cfg.Responder.Timeout.Duration())
}

func TestSizeBytesPlainInteger(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("responder:\n  max_context_bytes: 4096\n"), &cfg))
	require.Equal(t, int64(4096), cfg.Responder.MaxContextBytes.Int64())
}

func TestAddrDefaults(t *testing.T) {
	var cfg Config
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEMORYECHO_ADDR", "10.0.0.1:9999")
	t.Setenv("MEMORYECHO_RESPONDER_PROVIDER", "anthropic")
	t.Setenv("MEMORYECHO_API_KEYS", "a, b ,")

	var cfg Config
	require.True(t, LoadEnvOverrides(&cfg))
	require.Equal(t, "10.0.0.1:9999", cfg.Addr())
	require.Equal(t, "anthropic", cfg.Responder.Provider)
	require.Equal(t, []string{"a", "b"}, cfg.Security.APIKeys)
}

func TestLoadEffectivePrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(sampleYAML), 0o644))

	// file only
	eff, err := LoadEffective(Flags{Config: cfgPath, Set: map[string]bool{"config": true}})
	require.NoError(t, err)
	require.Equal(t, "config", eff.Source)
	require.Equal(t, "127.0.0.1:9090", eff.Addr)
	require.Equal(t, "/tmp/me-test", eff.DBPath)

	// explicit flags win over the file
	eff, err = LoadEffective(Flags{
		Config: cfgPath,
		Addr:   ":7777",
		DB:     filepath.Join(dir, "db"),
		Set:    map[string]bool{"config": true, "addr": true, "db": true},
	})
	require.NoError(t, err)
	require.Equal(t, ":7777", eff.Addr)
	require.Equal(t, filepath.Join(dir, "db"), eff.DBPath)

	// a missing implicit config file is not an error
	eff, err = LoadEffective(Flags{
		Config: filepath.Join(dir, "absent.yaml"),
		DB:     "./.memoryecho",
		Set:    map[string]bool{},
	})
	require.NoError(t, err)
	require.Equal(t, "flags", eff.Source)
	require.Equal(t, "0.0.0.0:8080", eff.Addr)

	// an explicitly named but missing config file is an error
	_, err = LoadEffective(Flags{
		Config: filepath.Join(dir, "absent.yaml"),
		Set:    map[string]bool{"config": true},
	})
	require.Error(t, err)
}
