package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/orchestrate/config"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/stage"
	"github.com/tailored-agentic-units/movi/telemetry"
)

const (
	defaultHistoryLimit = 10
	defaultFallbackPage = "busDashboard"
)

// Agent roles resolved from Config.Agents. Roles without an entry use
// agent.DefaultName.
const (
	RoleIntent       = "intent"
	RoleResponse     = "response"
	RoleConfirmation = "confirmation"
	RoleVision       = "vision"
)

// ServerConfig holds transport settings for cmd/movi serve.
type ServerConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	BasePath string `json:"base_path" yaml:"base_path"`
}

// Config holds initialization parameters for every kernel subsystem. Each
// section delegates to that subsystem's config type.
type Config struct {
	Graph        config.GraphConfig      `json:"graph" yaml:"graph"`
	Session      session.Config          `json:"session" yaml:"session"`
	Agents       map[string]agent.Config `json:"agents,omitempty" yaml:"agents,omitempty"`
	HighImpact   map[string]string       `json:"high_impact,omitempty" yaml:"high_impact,omitempty"`
	HistoryLimit int                     `json:"history_limit,omitempty" yaml:"history_limit,omitempty"`
	FallbackPage string                  `json:"fallback_page,omitempty" yaml:"fallback_page,omitempty"`
	Telemetry    telemetry.Config        `json:"telemetry" yaml:"telemetry"`
	Server       ServerConfig            `json:"server" yaml:"server"`
}

// DefaultConfig returns gpt-4o-mini for every role, with a warmer
// confirmation agent and gpt-4o for image description.
func DefaultConfig() Config {
	confirmation := agent.DefaultConfig()
	confirmation.Temperature = agent.Temperature(0.3)

	vision := agent.DefaultConfig()
	vision.Model = "gpt-4o"

	return Config{
		Graph:   config.DefaultPipelineConfig("movi"),
		Session: session.DefaultConfig(),
		Agents: map[string]agent.Config{
			agent.DefaultName: agent.DefaultConfig(),
			RoleConfirmation:  confirmation,
			RoleVision:        vision,
		},
		HistoryLimit: defaultHistoryLimit,
		FallbackPage: defaultFallbackPage,
		Telemetry:    telemetry.DefaultConfig(),
		Server:       ServerConfig{Addr: ":8000", BasePath: "/movi"},
	}
}

// Merge applies non-zero values from source into c. Agent entries merge by
// name; a configured high-impact set replaces the current one.
func (c *Config) Merge(source *Config) {
	c.Graph.Merge(&source.Graph)
	c.Session.Merge(&source.Session)
	c.Telemetry.Merge(&source.Telemetry)

	if c.Agents == nil && len(source.Agents) > 0 {
		c.Agents = make(map[string]agent.Config, len(source.Agents))
	}
	for name, src := range source.Agents {
		dst, ok := c.Agents[name]
		if !ok {
			dst = agent.DefaultConfig()
		}
		dst.Merge(&src)
		c.Agents[name] = dst
	}

	if len(source.HighImpact) > 0 {
		c.HighImpact = source.HighImpact
	}
	if source.HistoryLimit > 0 {
		c.HistoryLimit = source.HistoryLimit
	}
	if source.FallbackPage != "" {
		c.FallbackPage = source.FallbackPage
	}
	if source.Server.Addr != "" {
		c.Server.Addr = source.Server.Addr
	}
	if source.Server.BasePath != "" {
		c.Server.BasePath = source.Server.BasePath
	}
}

// HighImpactSet returns the configured set, or the default when none is
// configured.
func (c *Config) HighImpactSet() stage.HighImpactSet {
	if len(c.HighImpact) == 0 {
		return stage.DefaultHighImpact()
	}
	set := make(stage.HighImpactSet, len(c.HighImpact))
	for op, category := range c.HighImpact {
		set[op] = stage.Category(category)
	}
	return set
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON config file, merges it with
// defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
