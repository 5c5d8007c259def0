package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdobrica/Kagami/internal/kagami/gitops"
)

// applyInit validates the draft and, when it holds, spawns the git pipeline.
// Validation failures surface as error cells and return to the offending
// step; the wizard closes only when the pipeline is launched.
func (m *Model) applyInit() {
	name := strings.TrimSpace(m.draft.Name)
	if name == "" {
		m.sendError("worktree name is empty")
		m.enterStep(StepName)
		return
	}

	branch := strings.TrimSpace(m.draft.Branch)
	if branch == "" {
		m.sendError("branch name is empty")
		m.enterStep(StepBranchName)
		return
	}

	createBranch := m.draft.BranchMode == BranchCreateNew
	baseRef := strings.TrimSpace(m.draft.BaseRef)
	if createBranch && baseRef == "" {
		m.sendError("base ref is empty")
		m.enterStep(StepBaseRef)
		return
	}

	worktreePath := m.draft.resolveWorktreePath(m.workspaceRoot)
	if _, err := m.statFn(worktreePath); err == nil {
		m.sendError(fmt.Sprintf("worktree path already exists: %s", worktreePath))
		m.enterStep(StepPath)
		return
	}

	selectedDirs := m.draft.selectedSharedDirs()
	nextDirs := m.draft.allSharedDirs()
	addedNewDirs := m.draft.hasNewSharedDirs()
	workspaceRoot := m.workspaceRoot
	sender := m.sender
	runner := m.runner

	go func() {
		ctx := context.Background()
		path, err := runner.InitWorktreeWithMode(ctx, workspaceRoot, name, branch, worktreePath, createBranch, baseRef)
		if err != nil {
			lines := []string{
				invokedFrom,
				fmt.Sprintf("error: %v", err),
				"",
				"Try running this outside kagami:",
			}
			if createBranch {
				lines = append(lines, fmt.Sprintf("  git -C %s worktree add -b %s %s %s",
					workspaceRoot, branch, worktreePath, baseRef))
			} else {
				lines = append(lines, fmt.Sprintf("  git -C %s worktree add %s %s",
					workspaceRoot, worktreePath, branch))
			}
			sender.Send(InsertHistoryCell{Cell: HistoryCell{Kind: CellError, Lines: lines}})
			return
		}

		if addedNewDirs {
			sender.Send(UpdateSharedDirs{SharedDirs: nextDirs})
			sender.Send(PersistSharedDirs{SharedDirs: nextDirs})
		}

		body := []string{
			"worktree init",
			"created: " + path,
		}
		branchLine := "branch: " + branch
		if createBranch {
			branchLine += " (new)"
		}
		body = append(body, branchLine)
		if createBranch {
			body = append(body, "base: "+baseRef)
		}
		body = append(body, "workspace root: "+workspaceRoot)

		if len(selectedDirs) > 0 {
			actions := runner.LinkSharedDirs(ctx, path, workspaceRoot, selectedDirs)
			linked, skipped, failed := tallyLinkActions(actions)
			body = append(body, "", fmt.Sprintf("shared dirs: linked=%d, skipped=%d, failed=%d", linked, skipped, failed))
		}

		sender.Send(InsertHistoryCell{Cell: HistoryCell{Kind: CellCommand, Lines: []string{invokedFrom}}})
		sender.Send(InsertHistoryCell{Cell: HistoryCell{Kind: CellInfo, Lines: body}})

		sender.Send(WorktreeSwitched{Path: path})
		sender.Send(OverrideTurnContext{Cwd: path})
		sender.Send(ListSkills{Cwds: []string{path}, ForceReload: true})
	}()

	m.complete = true
}

// sendError emits the step-validation error cell.
func (m *Model) sendError(message string) {
	m.sender.Send(InsertHistoryCell{Cell: HistoryCell{
		Kind:  CellError,
		Lines: []string{fmt.Sprintf("`%s` — %s", invokedFrom, message)},
	}})
}

// tallyLinkActions folds link outcomes into the summary counts.
func tallyLinkActions(actions []gitops.LinkAction) (linked, skipped, failed int) {
	for _, action := range actions {
		switch action.Outcome {
		case gitops.LinkLinked, gitops.LinkAlreadyLinked:
			linked++
		case gitops.LinkSkipped:
			skipped++
		case gitops.LinkFailed:
			failed++
		}
	}
	return linked, skipped, failed
}
