package popup

import (
	"github.com/charmbracelet/lipgloss"
)

// Row is one rendered popup line.
type Row struct {
	Name         string
	Description  string
	MatchIndices []int
}

// Rows converts the current matches into display rows, attaching subcommand
// list hints and next-argument hints to descriptions.
func (p *Popup) Rows() []Row {
	return p.rowsFromMatches(p.Filtered())
}

func (p *Popup) rowsFromMatches(matches []ScoredItem) []Row {
	rows := make([]Row, 0, len(matches))
	for _, match := range matches {
		var row Row
		switch item := match.Item.(type) {
		case BuiltinItem:
			row = Row{Name: "/" + item.Command.Name, Description: p.builtinDescription(item.Command)}
		case BuiltinTextItem:
			description := item.Description
			if hint := HintForSubcommand(item.Name, p.commandLine); hint != "" {
				description += "  " + hint
			}
			row = Row{Name: "/" + item.Name, Description: description}
		case ArgValueItem:
			row = Row{Name: item.Display, Description: item.Description}
		case UserPromptItem:
			prompt := p.Prompt(item.Index)
			description := "send saved prompt"
			name := ""
			if prompt != nil {
				name = prompt.Name
				if prompt.Description != "" {
					description = prompt.Description
				}
			}
			row = Row{Name: "/" + PromptsCmdPrefix + ":" + name, Description: description}
		}
		if match.Indices != nil {
			// Shift past the leading '/' for command rows.
			if _, isArg := match.Item.(ArgValueItem); !isArg {
				shifted := make([]int, len(match.Indices))
				for i, idx := range match.Indices {
					shifted[i] = idx + 1
				}
				row.MatchIndices = shifted
			} else {
				row.MatchIndices = match.Indices
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// builtinDescription appends the subcommand list hint when the command line
// sits exactly on a root that has subcommands.
func (p *Popup) builtinDescription(cmd BuiltinCommand) string {
	description := cmd.Description
	trimmed := p.commandLine
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == ' ' || trimmed[len(trimmed)-1] == '\t') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == cmd.Name && SupportsSubcommands(cmd.Name) {
		if hint := ListHint(cmd.Name); hint != "" {
			description += "  " + hint
		}
	}
	return description
}

// RequiredHeight computes the popup height in terminal rows for the given
// width, accounting for wrapped descriptions and never exceeding the
// configured row cap.
func (p *Popup) RequiredHeight(width int) int {
	if width <= 0 {
		return 0
	}
	rows := p.Rows()
	if len(rows) == 0 {
		return 1 // "no matches" line
	}
	total := 0
	for _, row := range rows {
		line := row.Name
		if row.Description != "" {
			line += "  " + row.Description
		}
		cells := lipgloss.Width(line)
		height := (cells + width - 1) / width
		if height < 1 {
			height = 1
		}
		total += height
		if total >= p.maxRows {
			return p.maxRows
		}
	}
	return total
}
