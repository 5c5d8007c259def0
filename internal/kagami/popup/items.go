// Package popup implements the composer's slash-command autocomplete: fuzzy
// matching across built-ins, plugin-contributed subcommand trees, saved
// prompts, and argument-value completions, plus the selection state the
// composer drives with arrow keys.
package popup

// Item is one selectable row of the popup.
type Item interface{ isItem() }

// BuiltinItem is a first-class slash command.
type BuiltinItem struct {
	Command BuiltinCommand
}

// BuiltinTextItem is a textual suggestion (subcommands, plugin commands).
type BuiltinTextItem struct {
	// Name is the command string without the leading '/' (may include
	// spaces).
	Name        string
	Description string

	// RunOnEnter runs the suggestion immediately instead of completing it.
	RunOnEnter bool

	// InsertTrailingSpace appends a space on completion to invite args.
	InsertTrailingSpace bool
}

// ArgValueItem completes an argument value in place.
type ArgValueItem struct {
	Display             string
	Insert              string
	Description         string
	InsertTrailingSpace bool
}

// UserPromptItem references a saved prompt by index.
type UserPromptItem struct {
	Index int
}

func (BuiltinItem) isItem()     {}
func (BuiltinTextItem) isItem() {}
func (ArgValueItem) isItem()    {}
func (UserPromptItem) isItem()  {}

// ScoredItem pairs an item with optional highlight indices into its display
// name.
type ScoredItem struct {
	Item    Item
	Indices []int
}

// BuiltinCommand is one built-in slash command.
type BuiltinCommand struct {
	Name        string
	Description string
}

// PromptsCmdPrefix namespaces saved prompts in the popup ("/prompts:name").
const PromptsCmdPrefix = "prompts"

// Prompt is a saved user prompt surfaced in the popup.
type Prompt struct {
	Name        string
	Description string
	Content     string
}

// Flags gate feature-dependent built-ins.
type Flags struct {
	CollaborationModesEnabled bool
	ElevatedSandboxEnabled    bool
}

// builtinCommands returns the built-ins in presentation order, honouring the
// feature flags.
func builtinCommands(flags Flags) []BuiltinCommand {
	all := []BuiltinCommand{
		{"new", "start a new chat"},
		{"init", "create an AGENTS.md file with instructions for kagami"},
		{"model", "choose what model and reasoning effort to use"},
		{"mention", "mention a file"},
		{"mcp", "list configured MCP servers"},
		{"collab", "switch collaboration mode"},
		{"worktree", "switch between git worktrees"},
		{"settings", "open the settings panel"},
		{"review", "review my current changes and find issues"},
		{"hooks", "show configured lifecycle hooks"},
		{"resume", "resume a previous session"},
		{"compact", "summarize the conversation to free up context"},
		{"diff", "show git diff of the current changes"},
		{"status", "show current session configuration"},
		{"notifications", "configure desktop notifications"},
		{"theme", "switch the color theme"},
		{"prompts", "browse saved prompts"},
		{"elevate-sandbox", "re-run kagami with an elevated sandbox"},
		{"logout", "log out of kagami"},
		{"quit", "exit kagami"},
	}
	out := all[:0:0]
	for _, cmd := range all {
		if cmd.Name == "collab" && !flags.CollaborationModesEnabled {
			continue
		}
		if cmd.Name == "elevate-sandbox" && !flags.ElevatedSandboxEnabled {
			continue
		}
		out = append(out, cmd)
	}
	return out
}
