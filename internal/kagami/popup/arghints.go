package popup

import "strings"

// argHints maps subcommand full names to their positional argument hints.
var argHints = map[string][]string{
	"worktree init":       {"<name>", "<branch>", "[<path>]"},
	"worktree shared add": {"<dir>"},
	"worktree shared rm":  {"<dir>"},
}

// SupportsArgHints reports whether any subcommand of the named root carries
// argument hints.
func SupportsArgHints(name string) bool {
	prefix := name + " "
	for fullName := range argHints {
		if strings.HasPrefix(fullName, prefix) || fullName == name {
			return true
		}
	}
	return false
}

// HintForSubcommand derives a "Next: <arg>" hint for fullName given the
// current command line, or "" when all arguments are present.
func HintForSubcommand(fullName, commandLine string) string {
	hints, ok := argHints[fullName]
	if !ok {
		return ""
	}

	nameTokens := strings.Fields(fullName)
	lineTokens := strings.Fields(commandLine)
	if len(lineTokens) < len(nameTokens) {
		return ""
	}
	// Only hint while the line is actually on this subcommand.
	for i, token := range nameTokens {
		if lineTokens[i] != token {
			return ""
		}
	}

	argTokens := lineTokens[len(nameTokens):]
	trailingSpace := strings.HasSuffix(commandLine, " ")

	argIndex := len(argTokens)
	if len(argTokens) > 0 && !trailingSpace {
		// The last token is still being typed.
		argIndex--
	}
	if argIndex >= len(hints) {
		return ""
	}
	return "Next: " + hints[argIndex]
}
