package shipkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCommands(t *testing.T) {
	tests := []struct {
		args []string
		want int
		out  string
	}{
		{[]string{"version"}, 0, "shipkit"},
		{[]string{"help"}, 0, "Usage: shipkit"},
		{[]string{"frobnicate"}, 2, "Unknown command: frobnicate"},
		{[]string{"build", "-no-such-flag"}, 2, ""},
		{[]string{"verify"}, 2, "Usage: shipkit verify"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var out bytes.Buffer
			if got := Run(context.Background(), tt.args, &out); got != tt.want {
				t.Errorf("exit = %d, want %d\n%s", got, tt.want, out.String())
			}
			if !strings.Contains(out.String(), tt.out) {
				t.Errorf("output lacks %q:\n%s", tt.out, out.String())
			}
		})
	}
}

func TestRunCleanupWithoutBuild(t *testing.T) {
	root := t.TempDir()
	state := filepath.Join(root, "state", "license.json")
	writeFile(t, state, "{}")
	writeFile(t, filepath.Join(root, ConfigFileName), "SHIPKIT_LICENSE_STATE="+state+"\n")

	var out bytes.Buffer
	if code := Run(context.Background(), []string{"build", "-root", root, "-cleanup", "-no-build"}, &out); code != 0 {
		t.Fatalf("exit = %d\n%s", code, out.String())
	}
	if pathExists(state) {
		t.Error("license state survived -cleanup")
	}
	if !strings.Contains(out.String(), "Removed license state") {
		t.Errorf("output:\n%s", out.String())
	}

	out.Reset()
	if code := Run(context.Background(), []string{"-root", root, "-cleanup", "-no-build"}, &out); code != 0 {
		t.Fatalf("second cleanup exit = %d", code)
	}
	if !strings.Contains(out.String(), "No license state to clean up") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunKeygenAndVerify(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if code := Run(context.Background(), []string{"keygen", "-id", "rel", dir}, &out); code != 0 {
		t.Fatalf("keygen exit = %d\n%s", code, out.String())
	}

	archive := filepath.Join(dir, "Demo-linux.zip")
	writeFile(t, archive, "zip")
	if _, err := writeChecksumFile(archive); err != nil {
		t.Fatal(err)
	}
	key, err := loadSigningKey(filepath.Join(dir, "rel.key"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := signFile(archive, key); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if code := Run(context.Background(), []string{"verify", "-pub", filepath.Join(dir, "rel.pub"), archive}, &out); code != 0 {
		t.Fatalf("verify exit = %d\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "Signature OK") {
		t.Errorf("output:\n%s", out.String())
	}

	writeFile(t, archive, "changed")
	out.Reset()
	if code := Run(context.Background(), []string{"verify", archive}, &out); code != 1 {
		t.Errorf("verify of a changed archive exit = %d", code)
	}
}

func TestBuildExitCode(t *testing.T) {
	var out bytes.Buffer
	if code := buildExitCode(&out, &StageError{Stage: "bundle", ExitCode: 4, Err: errors.New("boom")}); code != 4 {
		t.Errorf("code = %d, want 4", code)
	}
	wrapped := fmt.Errorf("run: %w", &StageError{Stage: "compile", ExitCode: 2, Err: errors.New("boom")})
	if code := buildExitCode(&out, wrapped); code != 2 {
		t.Errorf("wrapped code = %d, want 2", code)
	}
	if code := buildExitCode(&out, &PreconditionError{Reason: "no python"}); code != 1 {
		t.Errorf("precondition code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "no python") {
		t.Errorf("error not printed:\n%s", out.String())
	}
}
