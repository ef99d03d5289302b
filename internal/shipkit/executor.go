package shipkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Executor runs the external tools of the pipeline. Every command carries
// its working directory in cmd.Dir; the executor never changes the process
// working directory.
type Executor struct {
	Context context.Context // The context to use for cancellation
	Stdout  io.Writer       // Where subprocess output goes (os.Stdout when nil)
	Log     io.Writer       // Optional build log receiving a copy of all subprocess output
}

// NewExecutor returns an executor bound to ctx.
func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// lockedWriter serialises writes coming from the stdout and stderr copiers.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Run executes cmd as a blocking call, isolated in its own process group so a
// cancelled context takes down the whole tool tree.
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Err != nil {
		return cmd.Err
	}
	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// --- Phase 0: wire up stdio ---
	out := cmd.Stdout
	if out == nil {
		out = e.Stdout
	}
	if out == nil {
		out = os.Stdout
	}
	errOut := cmd.Stderr
	if errOut == nil {
		errOut = out
	}
	var mu sync.Mutex
	if e.Log != nil {
		out = io.MultiWriter(out, e.Log)
		errOut = io.MultiWriter(errOut, e.Log)
	}

	// --- Phase 1: build the final command ---
	finalCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = lockedWriter{mu: &mu, w: out}
	finalCmd.Stderr = lockedWriter{mu: &mu, w: errOut}
	finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if e.Log != nil {
		fmt.Fprintf(e.Log, "$ (cd %s && %s)\n", cmd.Dir, strings.Join(cmd.Args, " "))
	}

	// --- Phase 2: start and watch for cancel ---
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	pgid := finalCmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = unix.Kill(-pgid, unix.SIGKILL)
		case <-done:
		}
	}()

	// --- Phase 3: wait and return ---
	if waitErr := finalCmd.Wait(); waitErr != nil {
		if ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", ctx.Err())
		}
		return waitErr
	}
	return nil
}

// Output runs cmd like Run and additionally returns everything it printed.
func (e *Executor) Output(cmd *exec.Cmd) (string, error) {
	var buf strings.Builder
	out := cmd.Stdout
	if out == nil {
		out = e.Stdout
	}
	if out == nil {
		out = os.Stdout
	}
	cmd.Stdout = io.MultiWriter(out, &buf)
	cmd.Stderr = cmd.Stdout
	err := e.Run(cmd)
	return buf.String(), err
}

// exitCode extracts the exit status of a failed command; anything that is
// not an exit status maps to 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
