package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// setupRepo creates a checkout with one commit and a bare "origin" remote.
func setupRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	base := t.TempDir()
	remote := filepath.Join(base, "remote.git")
	work := filepath.Join(base, "work")

	gitCmd := func(dir string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.org",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.org",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	gitCmd(base, "init", "--bare", "-b", "main", remote)
	gitCmd(base, "init", "-b", "main", work)
	gitCmd(work, "config", "user.name", "Test")
	gitCmd(work, "config", "user.email", "test@example.org")
	gitCmd(work, "config", "commit.gpgsign", "false")
	if err := os.WriteFile(filepath.Join(work, "README"), []byte("readme\n"), 0644); err != nil {
		t.Fatal(err)
	}
	gitCmd(work, "add", "README")
	gitCmd(work, "commit", "-m", "init")
	gitCmd(work, "remote", "add", "origin", remote)
	gitCmd(work, "push", "origin", "main")

	repo, err := Open(work, "origin", "main")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return repo, remote
}

func TestFindRepoRoot_NotRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := FindRepoRoot(t.TempDir())
	if !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("FindRepoRoot() error = %v, want ErrNotGitRepo", err)
	}
}

func TestRepo_PublishCycle(t *testing.T) {
	repo, remote := setupRepo(t)
	ctx := context.Background()

	bib := filepath.Join(repo.Root, "refs", "bibliography.bib")
	if err := os.MkdirAll(filepath.Dir(bib), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bib, []byte("@misc{a, title = {A}}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := repo.Stage(ctx, bib); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	changed, err := repo.HasStagedChanges(ctx, bib)
	if err != nil {
		t.Fatalf("HasStagedChanges() error = %v", err)
	}
	if !changed {
		t.Fatal("HasStagedChanges() = false after staging a new file")
	}

	if err := repo.Commit(ctx, "chore: sync bibliography", bib); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := repo.Push(ctx); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	local, err := repo.HeadSHA(ctx)
	if err != nil {
		t.Fatalf("HeadSHA() error = %v", err)
	}
	out, err := exec.Command("git", "-C", remote, "rev-parse", "--short", "main").Output()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(out[:len(out)-1]); got != local {
		t.Errorf("remote main = %s, want %s", got, local)
	}

	// Rewriting identical content stages nothing.
	if err := os.WriteFile(bib, []byte("@misc{a, title = {A}}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Stage(ctx, bib); err != nil {
		t.Fatal(err)
	}
	changed, err = repo.HasStagedChanges(ctx, bib)
	if err != nil {
		t.Fatalf("HasStagedChanges() error = %v", err)
	}
	if changed {
		t.Error("HasStagedChanges() = true for identical content")
	}
}

func TestRepo_CommitLeavesOtherStagedFiles(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	bib := filepath.Join(repo.Root, "bibliography.bib")
	other := filepath.Join(repo.Root, "notes.txt")
	os.WriteFile(bib, []byte("@misc{a, title = {A}}\n"), 0644)
	os.WriteFile(other, []byte("wip\n"), 0644)

	if err := repo.Stage(ctx, other); err != nil {
		t.Fatal(err)
	}
	if err := repo.Stage(ctx, bib); err != nil {
		t.Fatal(err)
	}
	if err := repo.Commit(ctx, "sync", bib); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	stillStaged, err := repo.HasStagedChanges(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if !stillStaged {
		t.Error("unrelated staged file was committed")
	}
}

func TestRepo_PushFailure(t *testing.T) {
	repo, _ := setupRepo(t)
	repo.Remote = "nowhere"

	err := repo.Push(context.Background())
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Push() error = %v, want *CommandError", err)
	}
	if cmdErr.Stderr == "" {
		t.Error("CommandError should carry git's stderr")
	}
}

func TestRepo_Unpublished(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	pending, err := repo.Unpublished(ctx)
	if err != nil {
		t.Fatalf("Unpublished() error = %v", err)
	}
	if pending {
		t.Fatal("Unpublished() = true right after pushing")
	}

	bib := filepath.Join(repo.Root, "bibliography.bib")
	if err := os.WriteFile(bib, []byte("@misc{a, title = {A}}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Stage(ctx, bib); err != nil {
		t.Fatal(err)
	}
	if err := repo.Commit(ctx, "sync", bib); err != nil {
		t.Fatal(err)
	}

	// A push to a missing remote leaves the commit unpublished.
	repo.Remote = "nowhere"
	if err := repo.Push(ctx); err == nil {
		t.Fatal("Push() to a missing remote succeeded")
	}
	repo.Remote = "origin"

	// Nothing is staged, but the commit still has to go out.
	if err := repo.Stage(ctx, bib); err != nil {
		t.Fatal(err)
	}
	changed, err := repo.HasStagedChanges(ctx, bib)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("HasStagedChanges() = true for committed content")
	}
	pending, err = repo.Unpublished(ctx)
	if err != nil {
		t.Fatalf("Unpublished() error = %v", err)
	}
	if !pending {
		t.Fatal("Unpublished() = false with a commit that never reached the remote")
	}

	if err := repo.Push(ctx); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	pending, err = repo.Unpublished(ctx)
	if err != nil {
		t.Fatalf("Unpublished() error = %v", err)
	}
	if pending {
		t.Error("Unpublished() = true after a successful push")
	}
}

func TestRepo_UnpublishedWithoutTrackingRef(t *testing.T) {
	repo, _ := setupRepo(t)
	repo.Branch = "drafts"

	pending, err := repo.Unpublished(context.Background())
	if err != nil {
		t.Fatalf("Unpublished() error = %v", err)
	}
	if !pending {
		t.Error("Unpublished() = false for a branch never pushed")
	}
}
