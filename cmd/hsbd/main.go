// Hsbd is the HSB home-automation gateway.
//
// It bridges the wireless sensor/actuator sub-network to local clients:
// the framed JSON TCP protocol, UDP discovery, the HTTP/WebSocket API and
// MQTT.
//
// Usage:
//
//	hsbd serve [--config configs/config.yaml]
//	hsbd probe [--target 255.255.255.255:18000]
//	hsbd version
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "hsbd",
		Short: "HSB home-automation gateway",
		Long: `hsbd bridges a sub-network of wireless sensor and actuator nodes to
local clients over TCP, UDP discovery, HTTP/WebSocket and MQTT, and runs
scenes and timers against the devices it discovers.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the configuration (ignored if missing)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadEnv loads KEY=value pairs into the environment. Variables already
// set take precedence.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// getConfigPath returns the configuration file path: the flag if given,
// then HSB_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("HSB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hsbd %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
