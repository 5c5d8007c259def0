package wizard

import (
	"path/filepath"
	"strings"

	"github.com/bdobrica/Kagami/internal/kagami/gitops"
)

// BranchMode selects between reusing an existing branch and creating one.
type BranchMode int

const (
	BranchExisting BranchMode = iota
	BranchCreateNew
)

// Step is the wizard's position in the flow.
type Step int

const (
	StepName Step = iota
	StepBranchMode
	StepBranchPicker
	StepBranchName
	StepBaseRef
	StepPath
	StepSharedDirs
	StepAddSharedDir
	StepConfirm
)

// SharedDirChoice is one toggleable shared-dir row.
type SharedDirChoice struct {
	Dir      string
	Selected bool
	IsNew    bool
}

// Draft accumulates the wizard's answers.  It is mutated only on Enter at
// each step and destroyed on Apply or Cancel.
type Draft struct {
	Name       string
	BranchMode BranchMode
	Branch     string
	BaseRef    string
	Path       string
	SharedDirs []SharedDirChoice
}

// defaultWorktreePath derives `<workspace_root>/.worktrees/<slug>` from the
// draft name.
func (d *Draft) defaultWorktreePath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".worktrees", gitops.WorktreeSlug(d.Name))
}

// resolveWorktreePath resolves the drafted path: empty falls back to the
// default, relative paths resolve against the workspace root.
func (d *Draft) resolveWorktreePath(workspaceRoot string) string {
	raw := strings.TrimSpace(d.Path)
	if raw == "" {
		return d.defaultWorktreePath(workspaceRoot)
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(workspaceRoot, raw)
}

// selectedSharedDirs returns the dirs chosen for linking.
func (d *Draft) selectedSharedDirs() []string {
	var out []string
	for _, choice := range d.SharedDirs {
		if choice.Selected {
			out = append(out, choice.Dir)
		}
	}
	return out
}

// allSharedDirs returns every configured dir in order.
func (d *Draft) allSharedDirs() []string {
	out := make([]string, 0, len(d.SharedDirs))
	for _, choice := range d.SharedDirs {
		out = append(out, choice.Dir)
	}
	return out
}

// hasNewSharedDirs reports whether the operator added dirs this run.
func (d *Draft) hasNewSharedDirs() bool {
	for _, choice := range d.SharedDirs {
		if choice.IsNew {
			return true
		}
	}
	return false
}
