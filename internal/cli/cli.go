// ============================================================================
// Chemist CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides a thin command line interface over Repository, based
// on the Cobra framework.
//
// Command Structure:
//   chemist                        # Root command
//   ├── run                        # Start the repository and block
//   │   └── --config, -c          # Specify config file
//   ├── feed                       # Feed a JSON event file into a fresh repository
//   │   └── --file, -f            # Specify event JSON file
//   ├── status                     # Print config and (if running) live state counts
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// Configuration Management:
//   Uses a YAML config file, loaded via internal/config. Built-in defaults
//   apply whenever --config is left unset.
//
// run Command:
//   Starts the repository, including:
//   1. Load config file
//   2. Create and start the Repository
//   3. Start the Prometheus metrics HTTP server (if a listen address is set)
//   4. Listen for SIGINT/SIGTERM
//   5. Stop the repository and return
//
//   Examples:
//     ./chemist run
//     ./chemist run -c custom-config.yaml
//
// feed Command:
//   Batch-feeds platform/telemetry events from a JSON file, a flattened
//   stand-in for the platform discovery / telemetry transport that would
//   normally produce these events.
//   JSON format:
//   [
//     {"kind": "NewTarget", "uri": "http://host/metrics"},
//     {"kind": "NewFlask", "flask_id": "f1", "address": "10.0.0.1:9000"}
//   ]
//
//   Examples:
//     ./chemist feed -f events.json
//
// status Command:
//   Displays the loaded configuration and, if a repository is running in
//   this process, its current per-state target counts.
//
// Signal Handling:
//   run captures SIGINT (Ctrl+C) and SIGTERM, then stops the repository
//   before returning.
//
// ============================================================================

package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chemist/chemist/internal/config"
	"github.com/chemist/chemist/internal/metrics"
	"github.com/chemist/chemist/internal/repository"
	"github.com/chemist/chemist/pkg/types"
)

var (
	configFile string
	globalRepo *repository.Repository
)

// BuildCLI assembles the root "chemist" command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "chemist",
		Short:   "chemist: the control-plane ledger for a metrics-collection fleet",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (built-in defaults if unset)")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildFeedCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func loadCfg() (config.Config, error) {
	if configFile == "" {
		return config.Defaults(), nil
	}
	return config.Load(configFile)
}

func buildRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the chemist repository and block until signaled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem()
		},
	}
}

func runSystem() error {
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.Default()
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	repo := repository.New(cfg, collector, log)
	globalRepo = repo

	if err := repo.Start(); err != nil {
		return fmt.Errorf("start repository: %w", err)
	}

	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.ListenAddr); err != nil {
				log.Error("metrics server stopped", "err", err)
			}
		}()
		log.Info("metrics listening", "addr", cfg.Metrics.ListenAddr)
	}

	log.Info("chemist repository started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("received shutdown signal, stopping")
	repo.Stop()
	log.Info("chemist repository stopped")
	return nil
}

// feedEventInput is the JSON-file shape accepted by the feed command, a
// flattened stand-in for whatever platform discovery / telemetry
// transport would normally produce PlatformEvents.
type feedEventInput struct {
	Kind    string `json:"kind"`
	URI     string `json:"uri,omitempty"`
	FlaskID string `json:"flask_id,omitempty"`
	Address string `json:"address,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

func buildFeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Feed a JSON file of platform events into a fresh repository and print the resulting state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("event file is required (use --file or -f)")
			}
			return feedEvents(file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file containing an array of platform events")
	cmd.MarkFlagRequired("file")
	return cmd
}

func feedEvents(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read event file: %w", err)
	}

	var inputs []feedEventInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("parse event file: %w", err)
	}

	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.Default()
	repo := repository.New(cfg, metrics.NoopSink{}, log)
	if err := repo.Start(); err != nil {
		return fmt.Errorf("start repository: %w", err)
	}
	defer repo.Stop()

	for _, in := range inputs {
		repo.PlatformHandler(toPlatformEvent(in))
	}

	fmt.Printf("fed %d events\n", len(inputs))
	for _, state := range types.States {
		bucket := repo.States()[state]
		if len(bucket) > 0 {
			fmt.Printf("  %-16s %d\n", state, len(bucket))
		}
	}
	return nil
}

func toPlatformEvent(in feedEventInput) types.PlatformEvent {
	return types.PlatformEvent{
		Kind:    types.PlatformEventKind(in.Kind),
		Time:    time.Now(),
		Target:  types.Target{URI: types.URI(in.URI)},
		FlaskID: types.FlaskID(in.FlaskID),
		Flask:   types.Flask{ID: types.FlaskID(in.FlaskID), Address: in.Address},
		Msg:     in.Msg,
	}
}

func buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show repository status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
}

func showStatus() error {
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("chemist status")
	fmt.Printf("  config file:        %s\n", displayOrDefault(configFile))
	fmt.Printf("  history capacities:  platform=%d repo=%d error=%d\n",
		cfg.History.PlatformCapacity, cfg.History.RepoCapacity, cfg.History.ErrorCapacity)
	fmt.Printf("  attempt threshold:   %d\n", cfg.Lifecycle.AttemptThreshold)
	fmt.Printf("  metrics listen addr: %s\n", cfg.Metrics.ListenAddr)

	if globalRepo == nil {
		fmt.Println("  repository:          not running in this process (run 'chemist run' to start one)")
		return nil
	}

	fmt.Println("  state counts:")
	for _, state := range types.States {
		bucket := globalRepo.States()[state]
		fmt.Printf("    %-16s %d\n", state, len(bucket))
	}
	return nil
}

func displayOrDefault(path string) string {
	if path == "" {
		return "(built-in defaults)"
	}
	return path
}
