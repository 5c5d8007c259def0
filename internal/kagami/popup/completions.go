package popup

import (
	"strings"

	"github.com/bdobrica/Kagami/internal/kagami/gitops"
)

// Completion is one argument-value completion.
type Completion struct {
	Display             string
	Insert              string
	Description         string
	InsertTrailingSpace bool
	Indices             []int
}

// WorktreeInitCompletions surfaces argument values for
// `/worktree init <name> <branch> [<path>]`: branch names (current branch
// first) on the branch argument, and the default `.worktrees/<slug>` path on
// the path argument.
func WorktreeInitCompletions(commandLine, currentBranch string, branches []string) []Completion {
	tokens := strings.Fields(commandLine)
	if len(tokens) < 2 || tokens[0] != "worktree" || tokens[1] != "init" {
		return nil
	}
	trailingSpace := strings.HasSuffix(commandLine, " ")

	args := tokens[2:]
	// argIndex is the position of the argument under the cursor.
	argIndex := len(args)
	partial := ""
	if len(args) > 0 && !trailingSpace {
		argIndex--
		partial = args[argIndex]
	}

	switch argIndex {
	case 1: // <branch>
		return branchCompletions(currentBranch, branches, partial)
	case 2: // <path>
		name := args[0]
		suggestion := ".worktrees/" + gitops.WorktreeSlug(name)
		if partial != "" && !strings.HasPrefix(suggestion, partial) {
			return nil
		}
		return []Completion{{
			Display:     suggestion,
			Insert:      suggestion,
			Description: "default worktree path",
		}}
	default:
		return nil
	}
}

// branchCompletions lists the current branch first, then the remaining
// branches, filtered by the partial token.
func branchCompletions(currentBranch string, branches []string, partial string) []Completion {
	ordered := make([]string, 0, len(branches)+1)
	if currentBranch != "" {
		ordered = append(ordered, currentBranch)
	}
	for _, branch := range branches {
		if branch == currentBranch {
			continue
		}
		ordered = append(ordered, branch)
	}

	var out []Completion
	for _, branch := range ordered {
		if partial != "" && !strings.HasPrefix(branch, partial) {
			continue
		}
		description := ""
		if branch == currentBranch {
			description = "current branch"
		}
		completion := Completion{
			Display:             branch,
			Insert:              branch,
			Description:         description,
			InsertTrailingSpace: true,
		}
		if partial != "" {
			completion.Indices = prefixIndices(len(partial))
		}
		out = append(out, completion)
	}
	return out
}

func prefixIndices(length int) []int {
	indices := make([]int, length)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
