// Package buildcheck compiles or tests generated code and returns the error
// report that drives the bug-fix loop.
package buildcheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/config"
)

// DefaultTimeout bounds a single check run.
const DefaultTimeout = 5 * time.Minute

// maxReport caps the report handed back to the generation model.
const maxReport = 16 << 10

// Checker runs a build or test over code. An empty report means the code is
// clean; a non-nil error means the check itself could not run.
type Checker interface {
	Check(ctx context.Context, code string) (report string, err error)
}

// Nop is a Checker that always reports clean.
type Nop struct{}

// Check implements Checker.
func (Nop) Check(context.Context, string) (string, error) {
	return "", nil
}

// CommandChecker writes code into a build directory and runs a command there.
type CommandChecker struct {
	command []string
	dir     string
	file    string
	timeout time.Duration

	// one build directory, one check at a time
	mu sync.Mutex
}

// NewCommandChecker creates a CommandChecker.
func NewCommandChecker(command []string, dir, file string, timeout time.Duration) (*CommandChecker, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errors.New("check command is required")
	}
	if dir == "" {
		return nil, errors.New("check dir is required")
	}
	if file == "" || filepath.IsAbs(file) || strings.HasPrefix(filepath.Clean(file), "..") {
		return nil, fmt.Errorf("check file must be a relative path inside dir: %q", file)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandChecker{
		command: append([]string(nil), command...),
		dir:     dir,
		file:    filepath.Clean(file),
		timeout: timeout,
	}, nil
}

// New returns the Checker described by cfg, or Nop when checks are disabled.
func New(cfg config.CheckConfig) (Checker, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	return NewCommandChecker(cfg.Command, cfg.Dir, cfg.File, cfg.Timeout.Duration())
}

// Check implements Checker. A non-zero exit or a timeout yields a report;
// failing to write the code or start the command yields an error.
func (c *CommandChecker) Check(ctx context.Context, code string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := filepath.Join(c.dir, c.file)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating build dir: %w", err)
	}
	if err := os.WriteFile(target, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, c.command[0], c.command[1:]...)
	cmd.Dir = c.dir

	output, err := cmd.CombinedOutput()
	if err == nil {
		return "", nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if timeoutCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("%s timed out after %v\n%s", c.command[0], c.timeout, truncate(output)), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return "", fmt.Errorf("running %s: %w", c.command[0], err)
	}

	report := strings.TrimSpace(truncate(output))
	if report == "" {
		report = fmt.Sprintf("%s failed: %v", c.command[0], exitErr)
	}
	return report, nil
}

func truncate(output []byte) string {
	if len(output) > maxReport {
		// compiler errors lead, keep the head
		output = output[:maxReport]
	}
	return string(output)
}
