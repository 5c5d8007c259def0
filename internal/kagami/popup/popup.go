package popup

import (
	"sort"
	"strings"
)

// DefaultMaxRows caps the popup height in rows.
const DefaultMaxRows = 8

// PluginCommand is a plugin-contributed top-level command.
type PluginCommand struct {
	Name                string
	Description         string
	RunOnEnter          bool
	InsertTrailingSpace bool
}

// Popup filters candidate completions against the composer text and keeps
// the selection cursor.  It runs on the UI event loop and is not safe for
// concurrent use.
type Popup struct {
	commandFilter string
	commandLine   string

	builtins       []BuiltinCommand
	pluginCommands []PluginCommand
	prompts        []Prompt

	branches      []string
	currentBranch string

	state           ScrollState
	selectionLocked bool
	maxRows         int
}

// New builds a Popup over the built-ins (honouring flags), the plugin
// commands, and the saved prompts.  Prompts colliding with built-in or
// plugin names are dropped.
func New(prompts []Prompt, plugins []PluginCommand, flags Flags, maxRows int) *Popup {
	if maxRows < 1 {
		maxRows = 1
	}
	p := &Popup{
		builtins:       builtinCommands(flags),
		pluginCommands: plugins,
		state:          NewScrollState(),
		maxRows:        maxRows,
	}
	p.prompts = p.filterPrompts(prompts)
	return p
}

// filterPrompts drops prompts whose names collide with command names.
func (p *Popup) filterPrompts(prompts []Prompt) []Prompt {
	taken := make(map[string]struct{}, len(p.builtins)+len(p.pluginCommands))
	for _, cmd := range p.builtins {
		taken[cmd.Name] = struct{}{}
	}
	for _, cmd := range p.pluginCommands {
		taken[cmd.Name] = struct{}{}
	}
	out := prompts[:0:0]
	for _, prompt := range prompts {
		if _, collides := taken[prompt.Name]; collides {
			continue
		}
		out = append(out, prompt)
	}
	return out
}

// SetPrompts replaces the prompt list, re-applying collision filtering.
func (p *Popup) SetPrompts(prompts []Prompt) {
	p.prompts = p.filterPrompts(prompts)
}

// SetBranches supplies the branch list for arg-value completions.
func (p *Popup) SetBranches(branches []string) {
	p.branches = branches
}

// SetCurrentBranch supplies the checked-out branch for completions.
func (p *Popup) SetCurrentBranch(branch string) {
	p.currentBranch = branch
}

// Prompt returns the prompt at index, if any.
func (p *Popup) Prompt(index int) *Prompt {
	if index < 0 || index >= len(p.prompts) {
		return nil
	}
	return &p.prompts[index]
}

// SetMaxRows updates the height cap.
func (p *Popup) SetMaxRows(maxRows int) {
	if maxRows < 1 {
		maxRows = 1
	}
	p.maxRows = maxRows
	length := len(p.Filtered())
	p.state.EnsureVisible(length, min(p.maxRows, length))
}

// OnComposerTextChange updates the filter from the composer text.  Only the
// first line is inspected; everything after the first '/' becomes the
// command line, and its first token the filter.
func (p *Popup) OnComposerTextChange(text string) {
	firstLine := text
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}

	prevFilter := p.commandFilter
	prevLine := p.commandLine

	if stripped, ok := strings.CutPrefix(firstLine, "/"); ok {
		token := strings.TrimLeft(stripped, " \t")
		fields := strings.Fields(token)
		cmdToken := ""
		if len(fields) > 0 {
			cmdToken = fields[0]
		}
		p.commandFilter = cmdToken
		p.commandLine = token
	} else {
		p.commandFilter = ""
		p.commandLine = ""
	}

	commandChanged := p.commandFilter != prevFilter || p.commandLine != prevLine
	if commandChanged {
		if !p.selectionLocked {
			// No explicit arrow-key intent: re-derive the default selection
			// for the new command line.
			p.state.SelectedIdx = -1
		}
		p.selectionLocked = false
	}

	matches := p.Filtered()
	hadSelection := p.state.HasSelection()
	p.state.ClampSelection(len(matches))

	if !hadSelection {
		if idx := indexOfArgValue(matches); idx >= 0 {
			p.state.SelectedIdx = idx
		} else if len(BuildSubcommandMatches(p.commandLine)) > 0 {
			if idx := indexOfBuiltinText(matches); idx >= 0 {
				p.state.SelectedIdx = idx
			}
		} else if p.hasExactMatch(matches) {
			// An exact name match is pre-selected so Enter runs it.
			p.state.SelectedIdx = 0
		}
	}
	p.state.EnsureVisible(len(matches), min(p.maxRows, len(matches)))
}

// hasExactMatch reports whether the current filter equals a matched command
// or prompt name case-insensitively.
func (p *Popup) hasExactMatch(matches []ScoredItem) bool {
	filter := strings.ToLower(strings.TrimSpace(p.commandFilter))
	if filter == "" {
		return false
	}
	for _, match := range matches {
		switch item := match.Item.(type) {
		case BuiltinItem:
			if strings.ToLower(item.Command.Name) == filter {
				return true
			}
		case BuiltinTextItem:
			if strings.ToLower(item.Name) == filter {
				return true
			}
		case UserPromptItem:
			if prompt := p.Prompt(item.Index); prompt != nil {
				if strings.ToLower(prompt.Name) == filter ||
					strings.ToLower(PromptsCmdPrefix+":"+prompt.Name) == filter {
					return true
				}
			}
		}
	}
	return false
}

func indexOfArgValue(matches []ScoredItem) int {
	for i, match := range matches {
		if _, ok := match.Item.(ArgValueItem); ok {
			return i
		}
	}
	return -1
}

func indexOfBuiltinText(matches []ScoredItem) int {
	for i, match := range matches {
		if _, ok := match.Item.(BuiltinTextItem); ok {
			return i
		}
	}
	return -1
}

// Filtered computes the ordered match list for the current composer text.
func (p *Popup) Filtered() []ScoredItem {
	filter := strings.TrimSpace(p.commandFilter)
	subMatches := BuildSubcommandMatches(p.commandLine)

	var out []ScoredItem
	if filter == "" {
		// Built-ins first, in presentation order.
		for _, cmd := range p.builtins {
			out = append(out, ScoredItem{Item: BuiltinItem{Command: cmd}})
		}
		for _, cmd := range p.pluginCommands {
			out = append(out, ScoredItem{Item: BuiltinTextItem{
				Name:                cmd.Name,
				Description:         cmd.Description,
				RunOnEnter:          cmd.RunOnEnter,
				InsertTrailingSpace: cmd.InsertTrailingSpace,
			}})
		}
		// Then prompts, already sorted by name.
		for idx := range p.prompts {
			out = append(out, ScoredItem{Item: UserPromptItem{Index: idx}})
		}
		return out
	}

	if len(subMatches) > 0 {
		// Subcommand context: arg values first, then matches by score.
		out = append(out, p.argValueCompletions()...)
		sort.SliceStable(subMatches, func(i, j int) bool {
			if subMatches[i].Score != subMatches[j].Score {
				return subMatches[i].Score < subMatches[j].Score
			}
			return subMatches[i].Node.FullName < subMatches[j].Node.FullName
		})
		for _, match := range subMatches {
			out = append(out, ScoredItem{
				Item: BuiltinTextItem{
					Name:                match.Node.FullName,
					Description:         match.Node.Description,
					RunOnEnter:          match.Node.RunOnEnter,
					InsertTrailingSpace: match.Node.InsertTrailingSpace,
				},
				Indices: match.Indices,
			})
		}
		return out
	}

	filterLower := strings.ToLower(filter)
	filterLen := len([]rune(filter))
	var exact, prefix []ScoredItem

	indicesFor := func(offset int) []int {
		indices := make([]int, filterLen)
		for i := range indices {
			indices[i] = offset + i
		}
		return indices
	}

	pushMatch := func(item Item, display, name string, nameOffset int) {
		displayLower := strings.ToLower(display)
		nameLower := strings.ToLower(name)
		displayExact := displayLower == filterLower
		nameExact := name != "" && nameLower == filterLower
		if displayExact || nameExact {
			offset := nameOffset
			if displayExact {
				offset = 0
			}
			exact = append(exact, ScoredItem{Item: item, Indices: indicesFor(offset)})
			return
		}
		displayPrefix := strings.HasPrefix(displayLower, filterLower)
		namePrefix := name != "" && strings.HasPrefix(nameLower, filterLower)
		if displayPrefix || namePrefix {
			offset := nameOffset
			if displayPrefix {
				offset = 0
			}
			prefix = append(prefix, ScoredItem{Item: item, Indices: indicesFor(offset)})
		}
	}

	for _, cmd := range p.builtins {
		pushMatch(BuiltinItem{Command: cmd}, cmd.Name, "", 0)
	}
	for _, cmd := range p.pluginCommands {
		pushMatch(BuiltinTextItem{
			Name:                cmd.Name,
			Description:         cmd.Description,
			RunOnEnter:          cmd.RunOnEnter,
			InsertTrailingSpace: cmd.InsertTrailingSpace,
		}, cmd.Name, cmd.Name, 0)
	}
	// Both search styles work: "name" surfaces "/prompts:name", and the
	// fully-qualified "prompts:name" matches too.
	promptPrefixLen := len([]rune(PromptsCmdPrefix)) + 1
	for idx, prompt := range p.prompts {
		display := PromptsCmdPrefix + ":" + prompt.Name
		pushMatch(UserPromptItem{Index: idx}, display, prompt.Name, promptPrefixLen)
	}

	out = append(out, exact...)
	out = append(out, prefix...)
	out = append(out, p.argValueCompletions()...)
	return out
}

// argValueCompletions maps the worktree-init completions into items.
func (p *Popup) argValueCompletions() []ScoredItem {
	completions := WorktreeInitCompletions(p.commandLine, p.currentBranch, p.branches)
	out := make([]ScoredItem, 0, len(completions))
	for _, completion := range completions {
		out = append(out, ScoredItem{
			Item: ArgValueItem{
				Display:             completion.Display,
				Insert:              completion.Insert,
				Description:         completion.Description,
				InsertTrailingSpace: completion.InsertTrailingSpace,
			},
			Indices: completion.Indices,
		})
	}
	return out
}

// MoveUp moves the selection cursor one step up and locks it against
// redundant text syncs.
func (p *Popup) MoveUp() {
	length := len(p.Filtered())
	p.selectionLocked = true
	p.state.MoveUpWrap(length)
	p.state.EnsureVisible(length, min(p.maxRows, length))
}

// MoveDown moves the selection cursor one step down and locks it.
func (p *Popup) MoveDown() {
	length := len(p.Filtered())
	p.selectionLocked = true
	p.state.MoveDownWrap(length)
	p.state.EnsureVisible(length, min(p.maxRows, length))
}

// SelectedIndex returns the selected row index, or -1 when none.
func (p *Popup) SelectedIndex() int {
	return p.state.SelectedIdx
}

// SelectedItem returns the currently selected item, if any.
func (p *Popup) SelectedItem() Item {
	matches := p.Filtered()
	if !p.state.HasSelection() || p.state.SelectedIdx >= len(matches) {
		return nil
	}
	return matches[p.state.SelectedIdx].Item
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
