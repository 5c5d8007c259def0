package popup

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Node is one entry of a nested subcommand tree.
type Node struct {
	// Token is the single path component ("init", "add").
	Token string

	// FullName is the complete command without the slash ("worktree init").
	FullName    string
	Description string

	RunOnEnter          bool
	InsertTrailingSpace bool

	Children []Node
}

// Root anchors a subcommand tree to a slash command.
type Root struct {
	Root     string
	Children []Node

	// HintOrder lists the child tokens in the order the list hint shows
	// them; nil falls back to declaration order.
	HintOrder []string
}

// worktreeRoot is the subcommand tree for /worktree.
var worktreeRoot = Root{
	Root: "worktree",
	Children: []Node{
		{
			Token:       "detect",
			FullName:    "worktree detect",
			Description: "refresh git worktree list and open picker",
			RunOnEnter:  true,
		},
		{
			Token:       "doctor",
			FullName:    "worktree doctor",
			Description: "show shared-dir + untracked status for this worktree",
			RunOnEnter:  true,
		},
		{
			Token:       "link-shared",
			FullName:    "worktree link-shared",
			Description: "apply shared-dir links for this worktree",
			RunOnEnter:  true,
			Children: []Node{
				{
					Token:       "--migrate",
					FullName:    "worktree link-shared --migrate",
					Description: "migrate untracked files into workspace root, then link",
					RunOnEnter:  true,
				},
			},
		},
		{
			Token:               "init",
			FullName:            "worktree init",
			Description:         "create a new worktree and switch to it",
			InsertTrailingSpace: true,
		},
		{
			Token:               "shared",
			FullName:            "worktree shared",
			Description:         "manage worktree shared dirs from the TUI",
			InsertTrailingSpace: true,
			Children: []Node{
				{
					Token:               "add",
					FullName:            "worktree shared add",
					Description:         "add a repo-relative shared dir to config",
					InsertTrailingSpace: true,
				},
				{
					Token:               "rm",
					FullName:            "worktree shared rm",
					Description:         "remove a shared dir from config",
					InsertTrailingSpace: true,
				},
				{
					Token:       "list",
					FullName:    "worktree shared list",
					Description: "show configured shared dirs",
					RunOnEnter:  true,
				},
			},
		},
	},
	HintOrder: []string{"detect", "doctor", "init", "shared", "link-shared"},
}

// subcommandRoots is the registry of all configured trees.
var subcommandRoots = []Root{worktreeRoot}

// findRoot returns the tree anchored at the given root token.
func findRoot(token string) *Root {
	for i := range subcommandRoots {
		if subcommandRoots[i].Root == token {
			return &subcommandRoots[i]
		}
	}
	return nil
}

// SupportsSubcommands reports whether the named command has a tree.
func SupportsSubcommands(name string) bool {
	return findRoot(name) != nil
}

// ListHint returns the "Type space for subcommands: …" hint of a root, or
// "" when it has none.
func ListHint(name string) string {
	root := findRoot(name)
	if root == nil {
		return ""
	}
	tokens := make([]string, 0, len(root.Children))
	if root.HintOrder != nil {
		tokens = append(tokens, root.HintOrder...)
	} else {
		for _, child := range root.Children {
			tokens = append(tokens, child.Token)
		}
	}
	return "Type space for subcommands: " + strings.Join(tokens, ", ")
}

// SubMatch is one matched subcommand with its fuzzy score (lower is better)
// and highlight indices into the full name.
type SubMatch struct {
	Node    Node
	Score   int
	Indices []int
}

// BuildSubcommandMatches resolves the subcommand context for the current
// command line.  An empty result means no context is active (the root is
// still being typed, or the line names no root).
func BuildSubcommandMatches(commandLine string) []SubMatch {
	tokens := strings.Fields(commandLine)
	if len(tokens) == 0 {
		return nil
	}
	trailingSpace := strings.HasSuffix(commandLine, " ") || strings.HasSuffix(commandLine, "\t")

	root := findRoot(tokens[0])
	if root == nil {
		return nil
	}
	if len(tokens) == 1 && !trailingSpace {
		// Root still being typed: no subcommand context yet.
		return nil
	}

	siblings := root.Children
	for i := 1; ; i++ {
		if i >= len(tokens) {
			// Everything typed so far matched; show the current level.
			return allMatches(siblings)
		}
		token := tokens[i]
		node := exactChild(siblings, token)
		lastToken := i == len(tokens)-1

		if node == nil {
			if lastToken && !trailingSpace {
				return fuzzyMatches(siblings, token)
			}
			return nil
		}

		if lastToken && !trailingSpace {
			// Token complete but not committed with a space: keep it (and
			// any siblings sharing the prefix) visible.
			return fuzzyMatches(siblings, token)
		}
		if len(node.Children) > 0 {
			siblings = node.Children
			continue
		}
		// Leaf: stays visible while trailing arguments are typed so the
		// user does not lose their place.
		return allMatches([]Node{*node})
	}
}

func exactChild(nodes []Node, token string) *Node {
	for i := range nodes {
		if nodes[i].Token == token {
			return &nodes[i]
		}
	}
	return nil
}

func allMatches(nodes []Node) []SubMatch {
	out := make([]SubMatch, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, SubMatch{Node: node})
	}
	return out
}

// fuzzyMatches filters nodes by the partial token, scoring with the fuzzy
// matcher and mapping highlight indices onto the full name.
func fuzzyMatches(nodes []Node, partial string) []SubMatch {
	tokens := make([]string, len(nodes))
	for i, node := range nodes {
		tokens[i] = node.Token
	}
	results := fuzzy.Find(partial, tokens)

	out := make([]SubMatch, 0, len(results))
	for _, result := range results {
		node := nodes[result.Index]
		offset := len(node.FullName) - len(node.Token)
		indices := make([]int, 0, len(result.MatchedIndexes))
		for _, idx := range result.MatchedIndexes {
			indices = append(indices, idx+offset)
		}
		// fuzzy.Find scores higher-is-better; the popup sorts ascending.
		out = append(out, SubMatch{Node: node, Score: -result.Score, Indices: indices})
	}
	return out
}
