package agent

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultName is the entry Resolve falls back to.
const DefaultName = "default"

// Info describes a registered agent.
type Info struct {
	Name     string
	Provider string
	Model    string
}

// Registry manages named agent configurations with lazy instantiation.
// Configs are stored at registration time; agents are created on first
// Get call. Prebuilt agents can be installed with Set. Safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]Config
	agents  map[string]Agent
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[string]Config),
		agents:  make(map[string]Agent),
	}
}

// Get retrieves a named agent, instantiating it on first access.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, exists := r.agents[name]; exists {
		return a, nil
	}

	cfg, registered := r.configs[name]
	if !registered {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}

	a, err := New(name, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %q: %w", name, err)
	}

	r.agents[name] = a
	return a, nil
}

// Resolve returns the named agent, or the default agent when name is not
// registered.
func (r *Registry) Resolve(name string) (Agent, error) {
	a, err := r.Get(name)
	if err == nil || name == DefaultName {
		return a, err
	}
	return r.Get(DefaultName)
}

// List returns the registered agents, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.configs)+len(r.agents))
	infos := make([]Info, 0, len(r.configs)+len(r.agents))
	for name, cfg := range r.configs {
		seen[name] = true
		infos = append(infos, Info{Name: name, Provider: cfg.Provider, Model: cfg.Model})
	}
	for name := range r.agents {
		if !seen[name] {
			infos = append(infos, Info{Name: name})
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Register adds a named agent configuration. The agent is not instantiated
// until Get is called.
func (r *Registry) Register(name string, cfg Config) error {
	if name == "" {
		return ErrEmptyAgentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}

	r.configs[name] = cfg
	return nil
}

// Set installs a prebuilt agent under name, replacing any registration.
func (r *Registry) Set(name string, a Agent) error {
	if name == "" {
		return ErrEmptyAgentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.configs, name)
	r.agents[name] = a
	return nil
}

// Replace updates the configuration for an existing named agent. Any cached
// instance is dropped; the next Get re-instantiates.
func (r *Registry) Replace(name string, cfg Config) error {
	if name == "" {
		return ErrEmptyAgentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}

	r.configs[name] = cfg
	delete(r.agents, name)
	return nil
}

// Unregister removes a named agent.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, hasConfig := r.configs[name]
	_, hasAgent := r.agents[name]
	if !hasConfig && !hasAgent {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}

	delete(r.configs, name)
	delete(r.agents, name)
	return nil
}
