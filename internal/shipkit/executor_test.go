package shipkit

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExecutorOutputAndLog(t *testing.T) {
	var stdout, log bytes.Buffer
	e := &Executor{Context: context.Background(), Stdout: &stdout, Log: &log}
	dir := t.TempDir()

	cmd := exec.Command("/bin/sh", "-c", "pwd; echo oops >&2")
	cmd.Dir = dir
	out, err := e.Output(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "oops") {
		t.Errorf("stderr not captured: %q", out)
	}
	if resolved, _ := filepath.EvalSymlinks(dir); !strings.Contains(out, resolved) {
		t.Errorf("command did not run in %s: %q", dir, out)
	}
	if !strings.Contains(stdout.String(), "oops") {
		t.Error("output not forwarded")
	}
	if !strings.Contains(log.String(), "$ (cd "+dir) {
		t.Errorf("log lacks the command line: %q", log.String())
	}
}

func TestExecutorExitCode(t *testing.T) {
	e := &Executor{Context: context.Background(), Stdout: &bytes.Buffer{}}
	err := e.Run(exec.Command("/bin/sh", "-c", "exit 7"))
	if code := exitCode(err); code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	if code := exitCode(errors.New("start failed")); code != 1 {
		t.Errorf("exit code of a plain error = %d, want 1", code)
	}
	if code := exitCode(nil); code != 0 {
		t.Errorf("exit code of nil = %d", code)
	}
}

func TestExecutorCancelKillsGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{Context: ctx, Stdout: &bytes.Buffer{}}

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := e.Run(exec.Command("/bin/sh", "-c", "sleep 30 & wait"))
	if err == nil {
		t.Fatal("cancelled command reported success")
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancel did not stop the command")
	}
}
