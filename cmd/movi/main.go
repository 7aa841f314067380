// Command movi runs the Movi transport assistant: an HTTP server, an
// interactive chat, and session inspection.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/fleet"
	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/telemetry"
	"github.com/tailored-agentic-units/movi/tools"
)

var (
	configFile string
	fleetFile  string
	verbose    bool
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "movi",
	Short:         "Movi transport operations assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config = zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		zap.ReplaceGlobals(logger)
		observability.RegisterObserver("zap", observability.NewZapObserver(logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&fleetFile, "fleet", "", "Path to a fleet dataset YAML (defaults to the built-in demo data)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, chatCmd, sessionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*kernel.Config, error) {
	if configFile == "" {
		cfg := kernel.DefaultConfig()
		cfg.Graph.Observer = "zap"
		return &cfg, nil
	}
	return kernel.LoadConfig(configFile)
}

func loadFleet() (*fleet.Store, error) {
	if fleetFile == "" {
		return fleet.Seed()
	}
	data, err := os.ReadFile(fleetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet data: %w", err)
	}
	return fleet.Load(data)
}

// app holds the wired runtime shared by every command.
type app struct {
	cfg       *kernel.Config
	kernel    *kernel.Kernel
	telemetry *telemetry.Manager
	describer agent.Describer
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tm, err := telemetry.NewManager(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	telemetry.SetDefault(tm)

	data, err := loadFleet()
	if err != nil {
		return nil, err
	}
	reg := tools.NewRegistry(cfg.FallbackPage)
	if err := fleet.Register(reg, data); err != nil {
		return nil, err
	}

	k, err := kernel.New(ctx, cfg,
		kernel.WithOperations(reg),
		kernel.WithChecker(fleet.Checker{Store: data}),
		kernel.WithTelemetry(tm),
	)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, kernel: k, telemetry: tm}
	if vision, err := k.Agents().Resolve(kernel.RoleVision); err == nil {
		if d, ok := vision.(agent.Describer); ok {
			a.describer = d
		}
	}

	logger.Debug("movi initialized",
		zap.String("session_backend", cfg.Session.Backend),
		zap.Int("operations", len(reg.List())),
		zap.Any("agents", k.Agents().List()),
	)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.kernel.Close(); err != nil {
		logger.Warn("failed to close session store", zap.Error(err))
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		logger.Warn("failed to flush traces", zap.Error(err))
	}
}
