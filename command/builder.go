package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/grovetools/pyfinder/errors"
)

const (
	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 10 * time.Minute

	// waitDelay bounds how long Output waits for pipes after the process is killed.
	waitDelay = time.Second
)

var condaEnvName = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// SafeBuilder validates and builds commands that run manager and
// interpreter binaries found during discovery.
type SafeBuilder struct {
	timeout    time.Duration
	validators map[string]func(string) error
	executor   Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		validators: map[string]func(string) error{
			"executable":   validateExecutable,
			"condaEnvName": validateCondaEnvName,
		},
		executor: exec,
	}
}

// WithTimeout bounds every command built afterwards. Zero means the caller's
// context is the only limit.
func (sb *SafeBuilder) WithTimeout(timeout time.Duration) *SafeBuilder {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if timeout < 0 {
		timeout = 0
	}
	sb.timeout = timeout
	return sb
}

// validateExecutable ensures a binary path is absolute and plausible.
func validateExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("executable path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("executable path contains a NUL byte")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("executable path must be absolute: %s", path)
	}
	return nil
}

// validateCondaEnvName ensures a name is safe to pass to `conda run -n`.
func validateCondaEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("conda environment name cannot be empty")
	}
	if strings.HasPrefix(name, "-") || !condaEnvName.MatchString(name) {
		return fmt.Errorf("invalid conda environment name: %s", name)
	}
	return nil
}

// Command represents a validated command ready to run.
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command with validation
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	cmdCtx, cancel := ctx, context.CancelFunc(func() {})
	if sb.timeout > 0 {
		cmdCtx, cancel = context.WithTimeout(ctx, sb.timeout)
	}

	return &Command{
		ctx:      cmdCtx,
		cancel:   cancel,
		name:     name,
		args:     args,
		timeout:  sb.timeout,
		executor: sb.executor,
	}, nil
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd. The caller owns the timeout; use
// Output when the command should be run to completion.
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// Output runs the command and returns stdout. Failures carry stderr.
func (c *Command) Output() ([]byte, error) {
	defer c.cancel()

	cmd := c.Exec()
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		fe := errors.CommandFailed(c.String(), err)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			fe = fe.WithDetail("stderr", msg)
		}
		if c.ctx.Err() == context.DeadlineExceeded {
			fe = fe.WithDetail("timeout", c.timeout.String())
		}
		return out, fe
	}
	return out, nil
}

// String renders the command line for logs and errors.
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}
