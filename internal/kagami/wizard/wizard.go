package wizard

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/bdobrica/Kagami/internal/kagami/gitops"
	"github.com/bdobrica/Kagami/internal/kagami/popup"
)

const invokedFrom = "/worktree init"

// Model is the worktree-init wizard, driven as a bubbletea model on the UI
// event loop.  The only asynchronous work is the git pipeline spawned on
// Apply; the UI stays responsive while it runs.
type Model struct {
	workspaceRoot string
	worktreeRoot  string
	currentBranch string

	complete bool
	step     Step
	draft    Draft

	branches    []string
	branchQuery string

	selection popup.ScrollState
	input     textinput.Model

	sender Sender
	runner gitops.Runner

	// statFn is the symlink-metadata probe for the existing-path check;
	// tests substitute it.
	statFn func(string) (os.FileInfo, error)
}

// New builds the wizard.  sharedDirs seeds the toggle list with every entry
// selected; branches feed the picker.
func New(worktreeRoot, workspaceRoot, currentBranch string, sharedDirs, branches []string, sender Sender, runner gitops.Runner) *Model {
	defaultBranch := currentBranch
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	choices := make([]SharedDirChoice, 0, len(sharedDirs))
	for _, dir := range sharedDirs {
		choices = append(choices, SharedDirChoice{Dir: dir, Selected: true})
	}

	input := textinput.New()
	input.Prompt = ""
	input.Focus()

	m := &Model{
		workspaceRoot: workspaceRoot,
		worktreeRoot:  worktreeRoot,
		currentBranch: currentBranch,
		step:          StepName,
		draft: Draft{
			BranchMode: BranchExisting,
			Branch:     defaultBranch,
			BaseRef:    "HEAD",
			SharedDirs: choices,
		},
		branches:  branches,
		selection: popup.NewScrollState(),
		input:     input,
		sender:    sender,
		runner:    runner,
		statFn:    os.Lstat,
	}
	m.enterStep(StepName)
	return m
}

// Complete reports whether the wizard has finished (applied or cancelled).
func (m *Model) Complete() bool { return m.complete }

// Step exposes the current step for the view and tests.
func (m *Model) Step() Step { return m.step }

// Draft exposes a copy of the current draft for the view and tests.
func (m *Model) Draft() Draft { return m.draft }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return textinput.Blink }

// enterStep switches steps, seeding the editable state each step owns.
func (m *Model) enterStep(step Step) {
	m.step = step
	switch step {
	case StepName:
		m.input.SetValue(m.draft.Name)
	case StepBranchMode:
		m.selection.SelectedIdx = 0
	case StepBranchPicker:
		m.branchQuery = ""
		selected := 0
		for i, branch := range m.branches {
			if branch == m.draft.Branch {
				selected = i
				break
			}
		}
		m.selection.SelectedIdx = selected
		m.selection.ScrollTop = 0
	case StepBranchName:
		m.input.SetValue(m.draft.Branch)
	case StepBaseRef:
		m.input.SetValue(m.draft.BaseRef)
	case StepPath:
		m.input.SetValue(m.draft.Path)
	case StepSharedDirs:
		if len(m.draft.SharedDirs)+1 == 0 {
			m.selection.SelectedIdx = -1
		} else if m.selection.SelectedIdx < 0 {
			m.selection.SelectedIdx = 0
		}
		m.selection.ClampSelection(len(m.draft.SharedDirs) + 1)
	case StepAddSharedDir:
		m.input.SetValue("")
	case StepConfirm:
	}
	m.input.CursorEnd()
}

// goBack moves to the predecessor step; Esc at Name cancels the wizard.
func (m *Model) goBack() {
	var prev Step
	switch m.step {
	case StepName:
		m.complete = true
		return
	case StepBranchMode:
		prev = StepName
	case StepBranchPicker:
		prev = StepBranchMode
	case StepBranchName:
		prev = StepBranchMode
	case StepBaseRef:
		prev = StepBranchName
	case StepPath:
		if m.draft.BranchMode == BranchCreateNew {
			prev = StepBaseRef
		} else {
			prev = StepBranchPicker
		}
	case StepSharedDirs:
		prev = StepPath
	case StepAddSharedDir:
		prev = StepSharedDirs
	case StepConfirm:
		prev = StepSharedDirs
	}
	m.enterStep(prev)
}

// branchMatch is one filtered branch row.
type branchMatch struct {
	Branch  string
	Indices []int
	score   int
}

// filteredBranchMatches applies the fuzzy query to the branch list, sorted
// by score then name.
func (m *Model) filteredBranchMatches() []branchMatch {
	query := strings.TrimSpace(m.branchQuery)
	if query == "" {
		out := make([]branchMatch, 0, len(m.branches))
		for _, branch := range m.branches {
			out = append(out, branchMatch{Branch: branch})
		}
		return out
	}

	results := fuzzy.Find(query, m.branches)
	out := make([]branchMatch, 0, len(results))
	for _, result := range results {
		out = append(out, branchMatch{
			Branch:  m.branches[result.Index],
			Indices: result.MatchedIndexes,
			score:   result.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].Branch < out[j].Branch
	})
	return out
}

// commitBranchPickerSelection records the highlighted branch and advances.
func (m *Model) commitBranchPickerSelection() {
	matches := m.filteredBranchMatches()
	if !m.selection.HasSelection() || m.selection.SelectedIdx >= len(matches) {
		return
	}
	m.draft.Branch = matches[m.selection.SelectedIdx].Branch
	m.enterStep(StepPath)
}

// acceptDefaultValue fills the step's default on Tab when the input is
// empty: the slugged worktree path, or the current branch name.
func (m *Model) acceptDefaultValue() bool {
	switch m.step {
	case StepPath:
		if strings.TrimSpace(m.input.Value()) != "" {
			return false
		}
		m.input.SetValue(m.draft.defaultWorktreePath(m.workspaceRoot))
		m.input.CursorEnd()
		return true
	case StepBranchName:
		if strings.TrimSpace(m.input.Value()) != "" {
			return false
		}
		branch := m.currentBranch
		if branch == "" {
			branch = "main"
		}
		m.input.SetValue(branch)
		m.input.CursorEnd()
		return true
	default:
		return false
	}
}

// toggleSharedDirSelection flips the highlighted row, or opens the
// add-shared-dir input when the trailing "Add…" row is selected.
func (m *Model) toggleSharedDirSelection() {
	if !m.selection.HasSelection() {
		return
	}
	idx := m.selection.SelectedIdx
	if idx >= len(m.draft.SharedDirs) {
		m.enterStep(StepAddSharedDir)
		return
	}
	m.draft.SharedDirs[idx].Selected = !m.draft.SharedDirs[idx].Selected
}

// commitAddSharedDir validates the typed entry; duplicates are silently
// skipped, invalid entries produce an error cell and return to the list.
func (m *Model) commitAddSharedDir() {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" {
		m.enterStep(StepSharedDirs)
		return
	}

	dir, err := ValidateSharedDir(raw)
	if err != nil {
		m.sender.Send(InsertHistoryCell{Cell: HistoryCell{
			Kind:  CellError,
			Lines: []string{fmt.Sprintf("`%s` — %s", invokedFrom, err)},
		}})
		m.enterStep(StepSharedDirs)
		return
	}

	for _, choice := range m.draft.SharedDirs {
		if choice.Dir == dir {
			m.enterStep(StepSharedDirs)
			return
		}
	}

	m.draft.SharedDirs = append(m.draft.SharedDirs, SharedDirChoice{Dir: dir, Selected: true, IsNew: true})
	m.enterStep(StepSharedDirs)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if key.Type == tea.KeyCtrlC {
		m.complete = true
		return m, nil
	}

	switch m.step {
	case StepName, StepBranchName, StepBaseRef, StepPath, StepAddSharedDir:
		return m.updateTextStep(key)
	case StepBranchMode:
		return m.updateBranchMode(key)
	case StepBranchPicker:
		return m.updateBranchPicker(key)
	case StepSharedDirs:
		return m.updateSharedDirs(key)
	case StepConfirm:
		switch key.Type {
		case tea.KeyEsc:
			m.goBack()
		case tea.KeyEnter:
			m.applyInit()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateTextStep(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.goBack()
		return m, nil
	case tea.KeyTab:
		m.acceptDefaultValue()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		switch m.step {
		case StepName:
			m.draft.Name = value
			m.enterStep(StepBranchMode)
		case StepBranchName:
			m.draft.Branch = value
			if m.draft.BranchMode == BranchCreateNew {
				m.enterStep(StepBaseRef)
			} else {
				m.enterStep(StepPath)
			}
		case StepBaseRef:
			m.draft.BaseRef = value
			m.enterStep(StepPath)
		case StepPath:
			m.draft.Path = value
			m.enterStep(StepSharedDirs)
		case StepAddSharedDir:
			m.commitAddSharedDir()
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}
}

func (m *Model) updateBranchMode(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.goBack()
	case tea.KeyUp:
		m.selection.MoveUpWrap(2)
	case tea.KeyDown:
		m.selection.MoveDownWrap(2)
	case tea.KeyEnter:
		if m.selection.SelectedIdx == 1 {
			m.draft.BranchMode = BranchCreateNew
			if suggested := strings.TrimSpace(m.draft.Name); suggested != "" {
				m.draft.Branch = suggested
			}
			m.enterStep(StepBranchName)
		} else {
			m.draft.BranchMode = BranchExisting
			branch := m.currentBranch
			if branch == "" {
				branch = "main"
			}
			m.draft.Branch = branch
			m.enterStep(StepBranchPicker)
		}
	}
	return m, nil
}

func (m *Model) updateBranchPicker(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	clamp := func() {
		length := len(m.filteredBranchMatches())
		m.selection.ClampSelection(length)
		m.selection.EnsureVisible(length, min(popup.DefaultMaxRows, length))
	}
	switch key.Type {
	case tea.KeyEsc:
		m.goBack()
	case tea.KeyUp:
		m.selection.MoveUpWrap(len(m.filteredBranchMatches()))
	case tea.KeyDown:
		m.selection.MoveDownWrap(len(m.filteredBranchMatches()))
	case tea.KeyEnter, tea.KeyTab:
		m.commitBranchPickerSelection()
	case tea.KeyBackspace:
		if len(m.branchQuery) > 0 {
			m.branchQuery = m.branchQuery[:len(m.branchQuery)-1]
		}
		clamp()
	case tea.KeyRunes:
		m.branchQuery += string(key.Runes)
		clamp()
	}
	return m, nil
}

func (m *Model) updateSharedDirs(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	length := len(m.draft.SharedDirs) + 1 // trailing "Add…" row
	switch key.Type {
	case tea.KeyEsc:
		m.goBack()
	case tea.KeyUp:
		m.selection.MoveUpWrap(length)
	case tea.KeyDown:
		m.selection.MoveDownWrap(length)
	case tea.KeyEnter:
		m.toggleSharedDirSelection()
	case tea.KeyTab:
		m.enterStep(StepConfirm)
	case tea.KeyRunes:
		switch string(key.Runes) {
		case "a":
			m.enterStep(StepAddSharedDir)
		case "c":
			m.enterStep(StepConfirm)
		}
	}
	return m, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
