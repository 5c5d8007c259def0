package popup_test

import (
	"strings"
	"testing"

	"github.com/bdobrica/Kagami/internal/kagami/popup"
)

func newPopup(prompts []popup.Prompt) *popup.Popup {
	return popup.New(prompts, nil, popup.Flags{}, popup.DefaultMaxRows)
}

// builtinNames extracts the builtin command names of a match list.
func builtinNames(matches []popup.ScoredItem) []string {
	var out []string
	for _, match := range matches {
		if item, ok := match.Item.(popup.BuiltinItem); ok {
			out = append(out, item.Command.Name)
		}
	}
	return out
}

// textNames extracts the BuiltinText names of a match list.
func textNames(matches []popup.ScoredItem) []string {
	var out []string
	for _, match := range matches {
		if item, ok := match.Item.(popup.BuiltinTextItem); ok {
			out = append(out, item.Name)
		}
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func TestFilterIncludesInitForPrefix(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/in")
	if !contains(builtinNames(p.Filtered()), "init") {
		t.Error("expected '/init' to appear among filtered commands")
	}
}

func TestSelectingInitByExactMatch(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/init")
	selected, ok := p.SelectedItem().(popup.BuiltinItem)
	if !ok || selected.Command.Name != "init" {
		t.Errorf("expected Builtin(init) selected, got %#v", p.SelectedItem())
	}
}

func TestModelIsFirstSuggestionForMo(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/mo")
	matches := p.Filtered()
	if len(matches) == 0 {
		t.Fatal("expected at least one match for /mo")
	}
	first, ok := matches[0].Item.(popup.BuiltinItem)
	if !ok || first.Command.Name != "model" {
		t.Errorf("expected model first, got %#v", matches[0].Item)
	}
}

func TestPrefixKeepsPresentationOrder(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/m")
	got := builtinNames(p.Filtered())
	want := []string{"model", "mention", "mcp"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPrefixFilterExcludesSubstringMatches(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/ac")
	if contains(builtinNames(p.Filtered()), "compact") {
		t.Error("prefix search for '/ac' must exclude 'compact'")
	}
}

func TestEmptyFilterListsBuiltinsPluginsThenPrompts(t *testing.T) {
	plugins := []popup.PluginCommand{{Name: "thoughts", Description: "jot a thought"}}
	prompts := []popup.Prompt{{Name: "bar"}, {Name: "foo"}}
	p := popup.New(prompts, plugins, popup.Flags{}, popup.DefaultMaxRows)
	p.OnComposerTextChange("/")

	matches := p.Filtered()
	var kinds []string
	for _, match := range matches {
		switch match.Item.(type) {
		case popup.BuiltinItem:
			kinds = append(kinds, "builtin")
		case popup.BuiltinTextItem:
			kinds = append(kinds, "plugin")
		case popup.UserPromptItem:
			kinds = append(kinds, "prompt")
		}
	}
	// Builtins strictly before plugins, plugins before prompts.
	last := ""
	order := map[string]int{"builtin": 0, "plugin": 1, "prompt": 2}
	for _, kind := range kinds {
		if last != "" && order[kind] < order[last] {
			t.Fatalf("ordering violated: %v", kinds)
		}
		last = kind
	}
	if !contains(kinds, "plugin") || !contains(kinds, "prompt") {
		t.Fatalf("missing sections: %v", kinds)
	}
}

func TestPluginCommandMatchesPrefix(t *testing.T) {
	plugins := []popup.PluginCommand{{Name: "thoughts", Description: "jot a thought"}}
	p := popup.New(nil, plugins, popup.Flags{}, popup.DefaultMaxRows)
	p.OnComposerTextChange("/tho")
	if !contains(textNames(p.Filtered()), "thoughts") {
		t.Error("expected '/thoughts' to appear among filtered commands")
	}
}

func TestPromptCollisionWithBuiltinIsDropped(t *testing.T) {
	p := newPopup([]popup.Prompt{{Name: "init", Content: "should be ignored"}})
	for _, match := range p.Filtered() {
		if item, ok := match.Item.(popup.UserPromptItem); ok {
			if prompt := p.Prompt(item.Index); prompt != nil && prompt.Name == "init" {
				t.Fatal("prompt colliding with a builtin must be dropped")
			}
		}
	}
}

func TestPromptCollisionWithPluginIsDropped(t *testing.T) {
	plugins := []popup.PluginCommand{{Name: "thoughts"}}
	p := popup.New([]popup.Prompt{{Name: "thoughts"}}, plugins, popup.Flags{}, popup.DefaultMaxRows)
	p.OnComposerTextChange("/tho")
	for _, match := range p.Filtered() {
		if _, ok := match.Item.(popup.UserPromptItem); ok {
			t.Fatal("prompt colliding with a plugin command must be dropped")
		}
	}
}

func TestPromptMatchesBareAndQualifiedNames(t *testing.T) {
	p := newPopup([]popup.Prompt{{Name: "my-prompt", Content: "hello"}})
	p.OnComposerTextChange("/my")
	found := false
	for _, match := range p.Filtered() {
		if _, ok := match.Item.(popup.UserPromptItem); ok {
			found = true
		}
	}
	if !found {
		t.Error("expected /my to suggest the custom prompt")
	}

	p.OnComposerTextChange("/prompts:my")
	found = false
	for _, match := range p.Filtered() {
		if _, ok := match.Item.(popup.UserPromptItem); ok {
			found = true
		}
	}
	if !found {
		t.Error("expected /prompts:my to suggest the custom prompt")
	}
}

func TestWorktreeSubcommandsHiddenUntilSpace(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree")
	for _, name := range textNames(p.Filtered()) {
		if len(name) > len("worktree") && name[:len("worktree ")] == "worktree " {
			t.Errorf("unexpected subcommand suggestion %q without trailing space", name)
		}
	}
}

func TestWorktreeTrailingSpaceShowsSubcommandsHidesRoot(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree ")
	matches := p.Filtered()
	if len(builtinNames(matches)) != 0 {
		t.Error("root command must be hidden in subcommand context")
	}
	names := textNames(matches)
	for _, want := range []string{"worktree detect", "worktree doctor", "worktree init", "worktree shared", "worktree link-shared"} {
		if !contains(names, want) {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestWorktreeDPrefixSurfacesDetectAndDoctor(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree d")
	names := textNames(p.Filtered())
	if !contains(names, "worktree detect") || !contains(names, "worktree doctor") {
		t.Errorf("expected detect/doctor, got %v", names)
	}
}

func TestSubcommandContextHidesOtherRoots(t *testing.T) {
	p := newPopup([]popup.Prompt{{Name: "worktree-helper", Content: "hello"}})
	p.OnComposerTextChange("/worktree d")
	for _, match := range p.Filtered() {
		switch match.Item.(type) {
		case popup.BuiltinTextItem, popup.ArgValueItem:
		default:
			t.Fatalf("unexpected item in subcommand context: %#v", match.Item)
		}
	}
}

func TestWorktreeSharedNestedSubcommands(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree shared ")
	names := textNames(p.Filtered())
	for _, want := range []string{"worktree shared add", "worktree shared rm", "worktree shared list"} {
		if !contains(names, want) {
			t.Errorf("missing %q in %v", want, names)
		}
	}
	if contains(names, "worktree detect") {
		t.Errorf("suggestions must be scoped, got %v", names)
	}
	if len(names) != 3 {
		t.Errorf("expected exactly the three shared subcommands, got %v", names)
	}
}

func TestLeafStaysVisibleWhileTypingArgs(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree shared add docs/impl-plans")
	if !contains(textNames(p.Filtered()), "worktree shared add") {
		t.Error("leaf subcommand must stay visible while typing args")
	}

	p.OnComposerTextChange("/worktree init foo ")
	if !contains(textNames(p.Filtered()), "worktree init") {
		t.Error("leaf subcommand must stay visible after trailing space and args")
	}
}

func TestWorktreeInitNextArgHint(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree init foo ")
	rows := p.Rows()
	var description string
	for _, row := range rows {
		if row.Name == "/worktree init" {
			description = row.Description
		}
	}
	if description == "" || !strings.Contains(description, "Next: <branch>") {
		t.Errorf("expected next-arg hint, got %q", description)
	}
}

func TestWorktreeRootListHint(t *testing.T) {
	want := "Type space for subcommands: detect, doctor, init, shared, link-shared"
	if got := popup.ListHint("worktree"); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestBranchArgSuggestsBranches(t *testing.T) {
	p := newPopup(nil)
	p.SetBranches([]string{"main", "feature"})
	p.SetCurrentBranch("feature")
	p.OnComposerTextChange("/worktree init foo ")

	var values []string
	for _, match := range p.Filtered() {
		if item, ok := match.Item.(popup.ArgValueItem); ok {
			values = append(values, item.Display)
		}
	}
	if len(values) < 2 || values[0] != "feature" || !contains(values, "main") {
		t.Errorf("expected current branch first then others, got %v", values)
	}
}

func TestPathArgSuggestsSluggedDefault(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree init feat/x main ")

	var values []string
	for _, match := range p.Filtered() {
		if item, ok := match.Item.(popup.ArgValueItem); ok {
			values = append(values, item.Display)
		}
	}
	if !contains(values, ".worktrees/feat-x") {
		t.Errorf("expected .worktrees/feat-x suggestion, got %v", values)
	}
}

func TestDefaultSelectionPrefersArgValue(t *testing.T) {
	p := newPopup(nil)
	p.SetBranches([]string{"main"})
	p.SetCurrentBranch("main")
	p.OnComposerTextChange("/worktree init foo ")
	if _, ok := p.SelectedItem().(popup.ArgValueItem); !ok {
		t.Errorf("ArgValue must win the default selection, got %#v", p.SelectedItem())
	}
}

func TestDefaultSelectionPrefersSubcommandInContext(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree shar")
	if _, ok := p.SelectedItem().(popup.BuiltinTextItem); !ok {
		t.Errorf("expected subcommand selected by default, got %#v", p.SelectedItem())
	}
}

func TestArrowSelectionSurvivesRedundantSync(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/worktree ")

	first := p.SelectedItem()
	p.MoveDown()
	moved := p.SelectedItem()
	if first == moved {
		t.Fatal("MoveDown must change the selection")
	}

	p.OnComposerTextChange("/worktree ")
	if p.SelectedItem() != moved {
		t.Error("selection must persist across redundant sync")
	}
}

func TestCollabHiddenWithoutFlag(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/coll")
	if contains(builtinNames(p.Filtered()), "collab") {
		t.Error("collab must be hidden when collaboration modes are disabled")
	}

	enabled := popup.New(nil, nil, popup.Flags{CollaborationModesEnabled: true}, popup.DefaultMaxRows)
	enabled.OnComposerTextChange("/collab")
	selected, ok := enabled.SelectedItem().(popup.BuiltinItem)
	if !ok || selected.Command.Name != "collab" {
		t.Errorf("expected collab selected for exact match, got %#v", enabled.SelectedItem())
	}
}

func TestRequiredHeightNeverExceedsCap(t *testing.T) {
	p := popup.New(nil, nil, popup.Flags{}, 5)
	p.OnComposerTextChange("/")
	if got := p.RequiredHeight(30); got > 5 {
		t.Errorf("height %d exceeds cap 5", got)
	}
	// Narrow width forces wrapping but still honours the cap.
	if got := p.RequiredHeight(4); got > 5 {
		t.Errorf("wrapped height %d exceeds cap 5", got)
	}
}

func TestNoSlashMeansNoFilter(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("plain text")
	matches := p.Filtered()
	// Full presentation-order list, nothing selected.
	if len(builtinNames(matches)) == 0 {
		t.Error("expected full command list without a slash")
	}
	if p.SelectedItem() != nil {
		t.Errorf("no default selection without a filter, got %#v", p.SelectedItem())
	}
}

func TestOnlyFirstLineInspected(t *testing.T) {
	p := newPopup(nil)
	p.OnComposerTextChange("/mo\n/worktree ")
	matches := p.Filtered()
	if len(matches) == 0 {
		t.Fatal("expected matches for /mo")
	}
	if first, ok := matches[0].Item.(popup.BuiltinItem); !ok || first.Command.Name != "model" {
		t.Errorf("second line leaked into the filter: %#v", matches[0].Item)
	}
}
