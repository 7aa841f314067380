// Package config holds initialization-time configuration for state graphs.
//
// Configuration values are plain structs with json and yaml tags. The
// observer is named and resolved through the observability registry; the
// checkpoint store is passed in when the graph is built:
//
//	cfg := config.DefaultPipelineConfig("movi")
//	observer, err := observability.GetObserver(cfg.Observer)
//	graph, err := state.NewGraph(cfg, observer, store)
//
// Merge methods apply only non-zero values so a partial document loaded from
// disk can be layered over the defaults.
package config
