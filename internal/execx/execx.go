// Package execx runs external commands synchronously in an explicit
// working directory.
package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// ErrTimeout is returned when a command outlives Runner.Timeout.
var ErrTimeout = errors.New("command timed out")

// Runner executes commands, waiting for each to finish.
type Runner struct {
	Stdout  io.Writer     // defaults to os.Stdout
	Stderr  io.Writer     // defaults to os.Stderr
	Timeout time.Duration // per command; zero means no limit
	Env     []string      // KEY=VALUE pairs added to the process environment
}

// WithEnv returns a copy of r that additionally sets env.
func (r *Runner) WithEnv(env ...string) *Runner {
	c := *r
	c.Env = append(slices.Clone(r.Env), env...)
	return &c
}

// Run executes argv in dir. The exit code is returned whenever the process
// ran to completion; err is set if it could not be started, was cancelled,
// or timed out.
func (r *Runner) Run(ctx context.Context, dir string, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, errors.New("execx: empty command")
	}
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	// Children holding the output pipes open must not block Wait forever
	// once the command itself has been killed.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return -1, fmt.Errorf("%w after %s: %s", ErrTimeout, r.Timeout, strings.Join(argv, " "))
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
