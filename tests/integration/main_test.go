// Package integration provides integration tests for bibsync commands.
package integration

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	binary     string
	binaryOnce sync.Once
	binaryErr  error
)

// getBinary builds the bibsync binary once and returns its path.
func getBinary(t *testing.T) string {
	t.Helper()
	binaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			binaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "bibsync-test-*")
		if err != nil {
			binaryErr = err
			return
		}
		binary = filepath.Join(tmpDir, "bibsync")

		cmd := exec.Command("go", "build", "-o", binary, "./cmd/bibsync")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			binaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if binaryErr != nil {
		t.Fatalf("failed to build bibsync: %v", binaryErr)
	}
	return binary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// run executes bibsync in dir with an isolated environment and returns its
// stdout and exit code.
func run(t *testing.T, dir string, env []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, ".config-test"),
		"ZOTERO_GROUP_ID=",
		"ZOTERO_API_KEY=",
		"LOG_LEVEL=error",
	)
	cmd.Env = append(cmd.Env, env...)

	output, err := cmd.Output()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return string(output), 0
	case errors.As(err, &exitErr):
		return string(output), exitErr.ExitCode()
	default:
		t.Fatalf("running bibsync: %v", err)
		return "", -1
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
