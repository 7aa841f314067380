package kernel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/stage"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := kernel.DefaultConfig()

	assert.Equal(t, "movi", cfg.Graph.Name)
	assert.Equal(t, 1, cfg.Graph.Checkpoint.Interval)
	assert.True(t, cfg.Graph.Checkpoint.Preserve)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, "busDashboard", cfg.FallbackPage)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Contains(t, cfg.Agents, agent.DefaultName)
	assert.Equal(t, "gpt-4o", cfg.Agents[kernel.RoleVision].Model)
	assert.Equal(t, stage.DefaultHighImpact(), cfg.HighImpactSet())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "movi.yaml", `
graph:
  observer: zap
session:
  backend: sqlite
  path: /tmp/movi.db
agents:
  default:
    provider: anthropic
    model: claude-sonnet-4-5
  vision:
    model: gpt-4.1
high_impact:
  delete_trip: trip
history_limit: 6
server:
  addr: ":9000"
`)

	cfg, err := kernel.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "zap", cfg.Graph.Observer)
	assert.Equal(t, "movi", cfg.Graph.Name)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, "/tmp/movi.db", cfg.Session.Path)
	assert.Equal(t, "anthropic", cfg.Agents[agent.DefaultName].Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Agents[agent.DefaultName].Model)
	assert.Equal(t, "gpt-4.1", cfg.Agents[kernel.RoleVision].Model)
	assert.Equal(t, 6, cfg.HistoryLimit)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/movi", cfg.Server.BasePath)
	assert.Equal(t, stage.HighImpactSet{"delete_trip": stage.CategoryTrip}, cfg.HighImpactSet())
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "movi.json", `{
		"agents": {"intent": {"model": "gpt-4.1-mini"}},
		"fallback_page": "manageRoute"
	}`)

	cfg, err := kernel.LoadConfig(path)
	require.NoError(t, err)

	intent := cfg.Agents[kernel.RoleIntent]
	assert.Equal(t, "gpt-4.1-mini", intent.Model)
	assert.Equal(t, agent.DefaultConfig().Provider, intent.Provider)
	assert.Equal(t, "manageRoute", cfg.FallbackPage)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := kernel.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = kernel.LoadConfig(writeConfig(t, "bad.json", "{"))
	assert.Error(t, err)
}
