// Package git publishes files through a local git checkout by shelling out
// to the git binary.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNotGitRepo indicates the directory is not a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// CommandError reports a failed git invocation with its stderr output.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// FindRepoRoot finds the root of the git repository containing the given path.
// Returns ErrNotGitRepo if not in a git repository.
func FindRepoRoot(path string) (string, error) {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrNotGitRepo
	}
	return strings.TrimSpace(string(output)), nil
}

// Repo is a checkout that publishes to Remote/Branch.
type Repo struct {
	Root   string
	Remote string
	Branch string
}

// Open returns the repository containing path.
func Open(path, remote, branch string) (*Repo, error) {
	root, err := FindRepoRoot(path)
	if err != nil {
		return nil, err
	}
	return &Repo{Root: root, Remote: remote, Branch: branch}, nil
}

// run executes git in the repository root and returns trimmed stdout.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.Root}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Stage adds path to the index.
func (r *Repo) Stage(ctx context.Context, path string) error {
	_, err := r.run(ctx, "add", "--", path)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD for path.
func (r *Repo) HasStagedChanges(ctx context.Context, path string) (bool, error) {
	_, err := r.run(ctx, "diff", "--cached", "--quiet", "--", path)
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// Commit records the staged state of path only, leaving anything else in the
// index untouched.
func (r *Repo) Commit(ctx context.Context, message, path string) error {
	_, err := r.run(ctx, "commit", "-m", message, "--", path)
	return err
}

// Push sends the configured branch to the configured remote.
func (r *Repo) Push(ctx context.Context) error {
	_, err := r.run(ctx, "push", r.Remote, r.Branch)
	return err
}

// Unpublished reports whether Branch has commits that Remote/Branch lacks,
// going by the remote-tracking ref as of the last fetch or push. A branch
// that was never pushed counts as unpublished.
func (r *Repo) Unpublished(ctx context.Context) (bool, error) {
	tracking := "refs/remotes/" + r.Remote + "/" + r.Branch
	if _, err := r.run(ctx, "rev-parse", "--verify", "--quiet", tracking); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return true, nil
		}
		return false, err
	}

	out, err := r.run(ctx, "rev-list", "--count", tracking+".."+r.Branch)
	if err != nil {
		return false, err
	}
	ahead, err := strconv.Atoi(out)
	if err != nil {
		return false, fmt.Errorf("parsing rev-list count %q: %w", out, err)
	}
	return ahead > 0, nil
}

// HeadSHA returns the abbreviated SHA of HEAD.
func (r *Repo) HeadSHA(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--short", "HEAD")
}
