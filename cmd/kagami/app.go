package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bdobrica/Kagami/common/trace"
	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
	"github.com/bdobrica/Kagami/internal/kagami/gitops"
	"github.com/bdobrica/Kagami/internal/kagami/popup"
	"github.com/bdobrica/Kagami/internal/kagami/session"
	"github.com/bdobrica/Kagami/internal/kagami/store"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
	"github.com/bdobrica/Kagami/internal/kagami/wizard"
)

var (
	historyStyle = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	popupStyle   = lipgloss.NewStyle().Faint(true)
	selectStyle  = lipgloss.NewStyle().Bold(true)
)

// appConfig bundles the collaborators the composer app is built from.
type appConfig struct {
	cfg        *config.Config
	store      *store.Store
	session    *session.Local
	dispatcher *tools.Dispatcher
	resolver   *gateway.PathResolver
	counters   *gateway.Counters

	workspaceRoot string
	cwd           string
	currentBranch string
	branches      []string
	sharedDirs    []string

	extraSecret []string
	extraAllow  []string
}

// app is the root bubbletea model: a composer line with the slash-command
// popup, plus the worktree wizard when it is open.  The chat widget proper
// is an external collaborator; this model owns only the composer surface.
type app struct {
	appConfig

	composer textinput.Model
	popup    *popup.Popup

	wizard       *wizard.Model
	wizardEvents chan wizard.Event

	gate *session.CallGate

	history []string
	width   int
}

// channelSender bridges wizard events onto the app's event channel.
type channelSender struct {
	ch chan wizard.Event
}

func (s channelSender) Send(event wizard.Event) { s.ch <- event }

// wizardEventMsg delivers one wizard event into Update.
type wizardEventMsg struct {
	event wizard.Event
}

func newApp(cfg appConfig) *app {
	composer := textinput.New()
	composer.Prompt = "› "
	composer.Focus()

	flags := popup.Flags{CollaborationModesEnabled: cfg.cfg.CollaborationMode != ""}
	p := popup.New(nil, nil, flags, popup.DefaultMaxRows)
	p.SetBranches(cfg.branches)
	p.SetCurrentBranch(cfg.currentBranch)

	return &app{
		appConfig:    cfg,
		composer:     composer,
		popup:        p,
		wizardEvents: make(chan wizard.Event, 16),
		gate:         session.NewCallGate(),
		width:        80,
	}
}

// Init implements tea.Model.
func (a *app) Init() tea.Cmd {
	return textinput.Blink
}

// waitForWizardEvent re-arms the wizard event listener.
func (a *app) waitForWizardEvent() tea.Cmd {
	return func() tea.Msg {
		return wizardEventMsg{event: <-a.wizardEvents}
	}
}

// Update implements tea.Model.
func (a *app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil
	case wizardEventMsg:
		a.handleWizardEvent(msg.event)
		return a, a.waitForWizardEvent()
	case toolResultMsg:
		a.history = append(a.history, msg.lines...)
		return a, nil
	case tea.KeyMsg:
		if a.wizard != nil && !a.wizard.Complete() {
			_, cmd := a.wizard.Update(msg)
			if a.wizard.Complete() {
				a.wizard = nil
			}
			return a, cmd
		}
		return a.updateComposer(msg)
	}

	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(msg)
	return a, cmd
}

func (a *app) updateComposer(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		return a, tea.Quit
	case tea.KeyUp:
		a.popup.MoveUp()
		return a, nil
	case tea.KeyDown:
		a.popup.MoveDown()
		return a, nil
	case tea.KeyEnter:
		return a.submitComposer()
	}

	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(key)
	a.popup.OnComposerTextChange(a.composer.Value())
	return a, cmd
}

// submitComposer runs the composed line: slash commands route locally, plain
// prompts go to the (external) model transport.
func (a *app) submitComposer() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(a.composer.Value())
	a.composer.SetValue("")
	a.popup.OnComposerTextChange("")
	if line == "" {
		return a, nil
	}
	a.history = append(a.history, line)

	if strings.HasPrefix(line, "/") {
		return a.runSlashCommand(strings.TrimPrefix(line, "/"))
	}
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		return a, a.runShellTool(rest)
	}
	// Prompt submission is owned by the transport collaborator.
	a.history = append(a.history, historyStyle.Render("(no model transport configured)"))
	return a, nil
}

// toolResultMsg carries a finished local tool dispatch back into Update.
type toolResultMsg struct {
	lines []string
}

// newTurnContext builds the per-turn settings for a locally-triggered tool
// call from the running configuration.
func (a *app) newTurnContext() *session.TurnContext {
	return &session.TurnContext{
		Cwd:                    a.cwd,
		KagamiHome:             a.cfg.KagamiHome,
		TurnID:                 trace.NewTurnID(),
		SandboxPolicy:          a.cfg.SandboxPolicy,
		WindowsSandboxLevel:    a.cfg.WindowsSandboxLevel,
		Exclusion:              a.cfg.Exclusion,
		ExtraSecretPatterns:    a.extraSecret,
		ExtraAllowPatterns:     a.extraAllow,
		SensitivePaths:         a.resolver,
		Counters:               a.counters,
		CollaborationMode:      a.cfg.CollaborationMode,
		Gate:                   a.gate,
		UnattestedOutputPolicy: a.cfg.UnattestedOutputPolicy,
	}
}

// runShellTool routes a `!command` escape through the full tool dispatch
// pipeline, so the gateway and the unattested-output policy apply exactly as
// they would to a model-requested call.
func (a *app) runShellTool(commandLine string) tea.Cmd {
	arguments, err := json.Marshal(map[string]any{
		"command": []string{"/bin/sh", "-c", commandLine},
	})
	if err != nil {
		a.history = append(a.history, errorStyle.Render("shell escape: "+err.Error()))
		return nil
	}
	inv := &tools.Invocation{
		ToolName: "shell",
		CallID:   trace.NewCallID(),
		Payload:  tools.FunctionPayload{Arguments: arguments},
		Session:  a.session,
		Turn:     a.newTurnContext(),
	}
	return func() tea.Msg {
		response, err := a.dispatcher.Dispatch(context.Background(), inv)
		if err != nil {
			return toolResultMsg{lines: []string{errorStyle.Render(err.Error())}}
		}
		lines := strings.Split(strings.TrimRight(response.Body.Preview(), "\n"), "\n")
		if response.Success != nil && !*response.Success {
			for i := range lines {
				lines[i] = errorStyle.Render(lines[i])
			}
		}
		return toolResultMsg{lines: lines}
	}
}

func (a *app) runSlashCommand(commandLine string) (tea.Model, tea.Cmd) {
	tokens := strings.Fields(commandLine)
	if len(tokens) == 0 {
		return a, nil
	}
	switch {
	case tokens[0] == "quit":
		return a, tea.Quit
	case tokens[0] == "worktree" && len(tokens) >= 2 && tokens[1] == "init":
		a.wizard = wizard.New(a.cwd, a.workspaceRoot, a.currentBranch, a.sharedDirs, a.branches,
			channelSender{ch: a.wizardEvents}, gitops.Git{})
		return a, a.waitForWizardEvent()
	case tokens[0] == "worktree" && len(tokens) >= 2 && tokens[1] == "shared":
		a.runWorktreeShared(tokens[2:])
		return a, nil
	default:
		a.history = append(a.history, historyStyle.Render("unknown command: /"+commandLine))
		return a, nil
	}
}

// runWorktreeShared handles `/worktree shared [list|add <dir>|rm <dir>]`.
func (a *app) runWorktreeShared(args []string) {
	printList := func() {
		if len(a.sharedDirs) == 0 {
			a.history = append(a.history, historyStyle.Render("(no shared dirs configured)"))
			return
		}
		a.history = append(a.history, "shared dirs: "+strings.Join(a.sharedDirs, ", "))
	}

	switch {
	case len(args) == 0 || args[0] == "list":
		printList()
	case args[0] == "add" && len(args) == 2:
		dir, err := wizard.ValidateSharedDir(args[1])
		if err != nil {
			a.history = append(a.history, errorStyle.Render("`/worktree shared add` — "+err.Error()))
			return
		}
		for _, existing := range a.sharedDirs {
			if existing == dir {
				a.history = append(a.history, historyStyle.Render("Shared dir already configured: `"+dir+"`"))
				return
			}
		}
		a.sharedDirs = append(a.sharedDirs, dir)
		a.persistSharedDirs()
		printList()
	case (args[0] == "rm" || args[0] == "remove") && len(args) == 2:
		dir, err := wizard.ValidateSharedDir(args[1])
		if err != nil {
			a.history = append(a.history, errorStyle.Render("`/worktree shared rm` — "+err.Error()))
			return
		}
		next := a.sharedDirs[:0:0]
		removed := 0
		for _, existing := range a.sharedDirs {
			if existing == dir {
				removed++
				continue
			}
			next = append(next, existing)
		}
		if removed == 0 {
			a.history = append(a.history, errorStyle.Render("`/worktree shared rm` — `"+dir+"` is not configured"))
			return
		}
		a.sharedDirs = next
		a.persistSharedDirs()
		printList()
	default:
		a.history = append(a.history, historyStyle.Render("Usage: /worktree shared [list|add <dir>|rm <dir>]"))
	}
}

func (a *app) persistSharedDirs() {
	if err := a.store.ReplaceSharedDirs(context.Background(), a.sharedDirs); err != nil {
		a.history = append(a.history, errorStyle.Render("could not persist shared dirs: "+err.Error()))
	}
}

func (a *app) handleWizardEvent(event wizard.Event) {
	switch e := event.(type) {
	case wizard.InsertHistoryCell:
		for _, line := range e.Cell.Lines {
			if e.Cell.Kind == wizard.CellError {
				a.history = append(a.history, errorStyle.Render(line))
			} else {
				a.history = append(a.history, line)
			}
		}
	case wizard.WorktreeSwitched:
		a.cwd = e.Path
		a.history = append(a.history, "switched to "+e.Path)
	case wizard.UpdateSharedDirs:
		a.sharedDirs = e.SharedDirs
	case wizard.PersistSharedDirs:
		// Persistence failures surface in the transcript, not as crashes.
		if err := a.store.ReplaceSharedDirs(context.Background(), e.SharedDirs); err != nil {
			a.history = append(a.history, errorStyle.Render("could not persist shared dirs: "+err.Error()))
		}
	case wizard.OverrideTurnContext, wizard.ListSkills:
		// Consumed by the turn-context owner; nothing to render.
	}
}

// View implements tea.Model.
func (a *app) View() string {
	var b strings.Builder
	for _, line := range a.history {
		b.WriteString(line + "\n")
	}

	if a.wizard != nil && !a.wizard.Complete() {
		b.WriteString("\n" + a.wizard.View())
		return b.String()
	}

	b.WriteString("\n" + a.composer.View() + "\n")
	rows := a.popup.Rows()
	if strings.HasPrefix(a.composer.Value(), "/") && len(rows) > 0 {
		height := a.popup.RequiredHeight(a.width)
		for i, row := range rows {
			if i >= height {
				break
			}
			line := row.Name
			if row.Description != "" {
				line += "  " + row.Description
			}
			if i == a.popup.SelectedIndex() {
				b.WriteString(selectStyle.Render(line) + "\n")
			} else {
				b.WriteString(popupStyle.Render(line) + "\n")
			}
		}
	}
	return b.String()
}
