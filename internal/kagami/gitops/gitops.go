// Package gitops shells out to git for the worktree pipeline: branch
// discovery, worktree creation, and shared-dir linking.  The Runner
// interface is what the wizard consumes; Git is the exec-backed
// implementation, and tests substitute a fake.
package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// LinkOutcome classifies one shared-dir link attempt.
type LinkOutcome int

const (
	LinkLinked LinkOutcome = iota
	LinkAlreadyLinked
	LinkSkipped
	LinkFailed
)

// LinkAction records the result of linking one shared dir.
type LinkAction struct {
	Dir     string
	Outcome LinkOutcome
	Detail  string
}

// Runner is the git side-effect surface the worktree wizard drives.
type Runner interface {
	// InitWorktreeWithMode creates a worktree for branch at path (or a
	// derived default when path is empty).  With createBranch the branch is
	// created from baseRef.  Returns the absolute worktree path.
	InitWorktreeWithMode(ctx context.Context, workspaceRoot, name, branch, path string, createBranch bool, baseRef string) (string, error)

	// LinkSharedDirs symlinks each dir from the workspace root into the
	// worktree and reports per-dir outcomes.
	LinkSharedDirs(ctx context.Context, worktreePath, workspaceRoot string, dirs []string) []LinkAction
}

// Git is the exec-backed Runner.
type Git struct{}

// run executes git with -C dir and returns trimmed stdout.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if text != "" {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), text)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return text, nil
}

// CurrentBranch returns the checked-out branch of dir, or "" on a detached
// HEAD.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return out, nil
}

// ListBranches returns the local branch names of dir.
func ListBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := run(ctx, dir, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ResolveWorktreeRoot returns the top level of the worktree containing dir.
func ResolveWorktreeRoot(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "--show-toplevel")
}

// InitWorktreeWithMode implements Runner.
func (Git) InitWorktreeWithMode(ctx context.Context, workspaceRoot, name, branch, path string, createBranch bool, baseRef string) (string, error) {
	if path == "" {
		path = filepath.Join(workspaceRoot, ".worktrees", name)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspaceRoot, path)
	}

	args := []string{"worktree", "add"}
	if createBranch {
		args = append(args, "-b", branch, path, baseRef)
	} else {
		args = append(args, path, branch)
	}
	if _, err := run(ctx, workspaceRoot, args...); err != nil {
		return "", err
	}
	slog.Info("worktree created", "name", name, "branch", branch, "path", path, "new_branch", createBranch)
	return path, nil
}

// LinkSharedDirs implements Runner.  A dir is skipped when it is missing in
// the workspace root or already present (and not our symlink) in the
// worktree.
func (Git) LinkSharedDirs(_ context.Context, worktreePath, workspaceRoot string, dirs []string) []LinkAction {
	actions := make([]LinkAction, 0, len(dirs))
	for _, dir := range dirs {
		source := filepath.Join(workspaceRoot, dir)
		target := filepath.Join(worktreePath, dir)

		if _, err := os.Stat(source); err != nil {
			actions = append(actions, LinkAction{Dir: dir, Outcome: LinkSkipped, Detail: "missing in workspace root"})
			continue
		}

		if info, err := os.Lstat(target); err == nil {
			if info.Mode()&os.ModeSymlink != 0 {
				if existing, err := os.Readlink(target); err == nil && existing == source {
					actions = append(actions, LinkAction{Dir: dir, Outcome: LinkAlreadyLinked})
					continue
				}
			}
			actions = append(actions, LinkAction{Dir: dir, Outcome: LinkSkipped, Detail: "target already exists"})
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			actions = append(actions, LinkAction{Dir: dir, Outcome: LinkFailed, Detail: err.Error()})
			continue
		}
		if err := os.Symlink(source, target); err != nil {
			actions = append(actions, LinkAction{Dir: dir, Outcome: LinkFailed, Detail: err.Error()})
			continue
		}
		actions = append(actions, LinkAction{Dir: dir, Outcome: LinkLinked})
	}
	return actions
}

// WorktreeSlug normalises a worktree name into a filesystem-safe path
// component: path separators and whitespace become '-', runs collapse, and
// an empty result falls back to "worktree".
func WorktreeSlug(name string) string {
	var b strings.Builder
	for _, ch := range strings.TrimSpace(name) {
		switch ch {
		case '/', '\\', ' ', '\t', '\n', '\r':
			b.WriteByte('-')
		default:
			b.WriteRune(ch)
		}
	}
	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "worktree"
	}
	return slug
}
