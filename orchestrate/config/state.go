package config

// CheckpointConfig controls state persistence during graph execution.
//
//   - Interval: checkpoint every N node executions (0 disables checkpointing)
//   - Preserve: keep the checkpoint after the run reaches an exit point
//
// The store itself is supplied by the caller when the graph is built. A
// graph that raises interrupts needs Interval > 0, otherwise a suspended run
// cannot be resumed.
type CheckpointConfig struct {
	Interval int  `json:"interval" yaml:"interval"`
	Preserve bool `json:"preserve" yaml:"preserve"`
}

// DefaultCheckpointConfig returns configuration with checkpointing disabled.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Interval: 0,
		Preserve: false,
	}
}

// Merge applies non-zero values from source.
func (c *CheckpointConfig) Merge(source *CheckpointConfig) {
	if source.Interval > 0 {
		c.Interval = source.Interval
	}

	if source.Preserve {
		c.Preserve = source.Preserve
	}
}

// GraphConfig configures a state graph.
//
// Observer is a name resolved through the observability registry, so the
// whole structure can be loaded from a JSON or YAML document:
//
//	graph:
//	  name: movi
//	  observer: zap
//	  max_iterations: 16
//	  checkpoint:
//	    interval: 1
//	    preserve: true
type GraphConfig struct {
	Name          string           `json:"name" yaml:"name"`
	Observer      string           `json:"observer" yaml:"observer"`
	MaxIterations int              `json:"max_iterations" yaml:"max_iterations"`
	Checkpoint    CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
}

// DefaultGraphConfig returns defaults for a graph named name.
func DefaultGraphConfig(name string) GraphConfig {
	return GraphConfig{
		Name:          name,
		Observer:      "slog",
		MaxIterations: 1000,
		Checkpoint:    DefaultCheckpointConfig(),
	}
}

// DefaultPipelineConfig returns defaults for a resumable pipeline: every
// node is checkpointed and the checkpoint outlives the run, since it doubles
// as the conversation record.
func DefaultPipelineConfig(name string) GraphConfig {
	cfg := DefaultGraphConfig(name)
	cfg.MaxIterations = 16
	cfg.Checkpoint.Interval = 1
	cfg.Checkpoint.Preserve = true
	return cfg
}

// Merge applies non-zero values from source.
func (c *GraphConfig) Merge(source *GraphConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}

	c.Checkpoint.Merge(&source.Checkpoint)
}
