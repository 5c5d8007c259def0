package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// stepTitle names the current step in the header.
func (m *Model) stepTitle() string {
	switch m.step {
	case StepName:
		return "Worktree init — name"
	case StepBranchMode:
		return "Worktree init — branch mode"
	case StepBranchPicker:
		return "Worktree init — branch (existing)"
	case StepBranchName:
		return "Worktree init — branch name"
	case StepBaseRef:
		return "Worktree init — base ref"
	case StepPath:
		return "Worktree init — path"
	case StepSharedDirs:
		return "Worktree init — shared dirs"
	case StepAddSharedDir:
		return "Worktree init — add shared dir"
	case StepConfirm:
		return "Worktree init — confirm"
	default:
		return "Worktree init"
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.stepTitle()) + "\n")
	b.WriteString(dimStyle.Render("Workspace root: ") + m.workspaceRoot + "\n")
	b.WriteString(dimStyle.Render("Active worktree: ") + m.worktreeRoot + "\n\n")

	switch m.step {
	case StepName:
		b.WriteString(m.inputView("Worktree name", "e.g. fix/worktree"))
	case StepBranchMode:
		b.WriteString(m.branchModeView())
	case StepBranchPicker:
		b.WriteString(m.branchPickerView())
	case StepBranchName:
		b.WriteString(m.inputView("Branch name", "e.g. main"))
	case StepBaseRef:
		b.WriteString(m.inputView("Base ref (for new branch)", "HEAD"))
	case StepPath:
		b.WriteString(m.inputView("Worktree path (optional)", m.draft.defaultWorktreePath(m.workspaceRoot)))
	case StepAddSharedDir:
		b.WriteString(m.inputView("Add shared dir (repo-relative)", "e.g. docs/impl-plans"))
	case StepSharedDirs:
		b.WriteString(m.sharedDirsView())
	case StepConfirm:
		b.WriteString(m.confirmView())
	}

	b.WriteString("\n" + m.hintLine())
	return b.String()
}

func (m *Model) inputView(label, placeholder string) string {
	view := m.input.View()
	if strings.TrimSpace(m.input.Value()) == "" {
		view += dimStyle.Render(placeholder)
	}
	return titleStyle.Render(label) + "\n" + view + "\n"
}

func (m *Model) branchModeView() string {
	rows := []struct {
		name        string
		description string
	}{
		{"Use existing branch", ""},
		{"Create new branch", "choose a base ref on the next step"},
	}
	if m.currentBranch != "" {
		rows[0].description = "default: " + m.currentBranch
	}
	var b strings.Builder
	for i, row := range rows {
		prefix := "  "
		if m.selection.SelectedIdx == i {
			prefix = "› "
		}
		b.WriteString(prefix + row.name)
		if row.description != "" {
			b.WriteString("  " + dimStyle.Render(row.description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) branchPickerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Branch") + dimStyle.Render(" (existing)") + "\n")
	if m.branchQuery == "" {
		b.WriteString(dimStyle.Render("Search: Type to search branches") + "\n")
	} else {
		b.WriteString(dimStyle.Render("Search: ") + m.branchQuery + "\n")
	}
	matches := m.filteredBranchMatches()
	if len(matches) == 0 {
		b.WriteString("  No matching branches\n")
		return b.String()
	}
	for i, match := range matches {
		prefix := "  "
		if m.selection.SelectedIdx == i {
			prefix = "› "
		}
		line := prefix + match.Branch
		if match.Branch == m.currentBranch {
			line += "  " + dimStyle.Render("current")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m *Model) sharedDirsView() string {
	var b strings.Builder
	for i, choice := range m.draft.SharedDirs {
		prefix := "  "
		if m.selection.SelectedIdx == i {
			prefix = "› "
		}
		marker := " "
		if choice.Selected {
			marker = "x"
		}
		line := fmt.Sprintf("%s[%s] %s", prefix, marker, choice.Dir)
		if choice.IsNew {
			line += " (new)"
		}
		b.WriteString(line + "\n")
	}
	addPrefix := "  "
	if m.selection.SelectedIdx == len(m.draft.SharedDirs) {
		addPrefix = "› "
	}
	b.WriteString(addPrefix + "[+] Add shared dir…\n")
	return b.String()
}

func (m *Model) confirmView() string {
	var b strings.Builder
	name := strings.TrimSpace(m.draft.Name)
	branch := strings.TrimSpace(m.draft.Branch)
	createBranch := m.draft.BranchMode == BranchCreateNew
	baseRef := strings.TrimSpace(m.draft.BaseRef)

	writeField := func(label, value string) {
		b.WriteString(dimStyle.Render(label + ": "))
		if value == "" {
			b.WriteString(missStyle.Render("(missing)"))
		} else {
			b.WriteString(value)
		}
		b.WriteString("\n")
	}

	writeField("Name", name)
	if createBranch && branch != "" {
		writeField("Branch", branch+" (new)")
	} else {
		writeField("Branch", branch)
	}
	if createBranch {
		writeField("Base", baseRef)
	}
	b.WriteString(dimStyle.Render("Worktree path: ") + m.draft.resolveWorktreePath(m.workspaceRoot) + "\n\n")

	selected := m.draft.selectedSharedDirs()
	if len(selected) == 0 {
		b.WriteString(dimStyle.Render("Shared dirs: (none)") + "\n")
	} else {
		b.WriteString(dimStyle.Render("Shared dirs: ") + strings.Join(selected, ", ") + "\n")
	}
	return b.String()
}

func (m *Model) hintLine() string {
	hint := func(parts ...string) string {
		var b strings.Builder
		for i := 0; i+1 < len(parts); i += 2 {
			b.WriteString(keyStyle.Render(parts[i]) + dimStyle.Render(parts[i+1]))
		}
		return b.String()
	}
	switch m.step {
	case StepPath:
		return hint("Enter", " = Next, ", "Tab", " = Use default, ", "Esc", " = Back")
	case StepBranchPicker:
		return hint("Enter", " = Select, ", "Tab", " = Select, ", "Esc", " = Back")
	case StepSharedDirs:
		return hint("Enter", " = Toggle, ", "a", " = Add, ", "Tab", " = Next, ", "Esc", " = Back")
	case StepConfirm:
		return hint("Enter", " = Create + switch, ", "Esc", " = Back, ", "Ctrl+C", " = Cancel")
	default:
		return hint("Enter", " = Next, ", "Esc", " = Back")
	}
}
