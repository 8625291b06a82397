package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// request is the project request; prompted for when empty
	request string
)

// runCmd runs one pipeline in the foreground
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent pipeline once",
	Long: `Run the agent pipeline once for a single project request.

Examples:
  # Prompt for the request
  autodev run

  # Pass the request directly
  autodev run --request "Build a todo app with login"

  # Use a specific config file
  autodev run --config /etc/autodev/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&request, "request", "r", "", "project request (prompted when omitted)")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	p := &printer{out: out}
	a, err := newApp(ctx, p.callback())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.close(shutdownCtx)
	}()

	req := request
	if req == "" {
		req, err = promptRequest(os.Stdin, out)
		if err != nil {
			return err
		}
	}

	result, runErr := a.pipeline.Run(ctx, req)
	if result == nil {
		return runErr
	}

	fmt.Fprintln(out)
	renderSummary(out, result)
	fmt.Fprintf(out, "Artifacts: %s\n", a.store.ForRun(result.RunID).Location())

	if runErr != nil {
		a.logger.Error(ctx, "run failed", zap.String("run.id", result.RunID), zap.Error(runErr))
		return runErr
	}
	return nil
}
