// Autodev turns a one-line project request into a generated web server by
// running a pipeline of agents against an OpenAI-compatible model.
//
// Usage:
//
//	# Prompt for the request and run the pipeline once
//	autodev run
//
//	# Run non-interactively
//	autodev run --request "Build a todo app with login"
//
//	# Serve runs over HTTP
//	autodev serve
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides the default config file location
	configPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autodev",
	Short: "Generate web server projects with a pipeline of agents",
	Long: `autodev converts a natural-language project request into a scoped,
validated and generated web server backend.

The pipeline runs a Solutions Architect, a URL Validator and a Backend
Developer in order against a single project record.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/autodev/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
