package tools

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Kagami/internal/kagami/config"
)

// PlanModeBlockMessage returns the model-visible block message when the
// named tool must not run in plan mode, or "" when the call may proceed.
// The wording is byte-stable; the composer and tests both depend on it.
func PlanModeBlockMessage(mode config.ModeKind, toolName string) string {
	if mode != config.ModePlan || !isPlanModeFileMutationTool(toolName) {
		return ""
	}
	return fmt.Sprintf("`%s` is blocked in Plan mode because it can mutate files. Switch to Default mode to run file edits.", toolName)
}

// isPlanModeFileMutationTool matches on the canonical trailing name so that
// MCP-namespaced variants (mcp__fs__write_file) and path-style names are
// caught too.
func isPlanModeFileMutationTool(toolName string) bool {
	trailing := toolName
	if idx := strings.LastIndex(trailing, "__"); idx >= 0 {
		trailing = trailing[idx+2:]
	}
	if idx := strings.LastIndex(trailing, "/"); idx >= 0 {
		trailing = trailing[idx+1:]
	}
	switch trailing {
	case "apply_patch", "write_file", "edit_file":
		return true
	default:
		return false
	}
}
