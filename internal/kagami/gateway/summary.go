package gateway

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Kagami/common/redact"
)

// MatchSummary is one deduplicated (reason, value) entry of a report.
type MatchSummary struct {
	Reason Reason
	Value  string
	Count  int
}

// SummarizeMatches collapses duplicate (reason, value) pairs into counted
// entries, preserving first-seen order.
func SummarizeMatches(report *Report) []MatchSummary {
	type key struct {
		reason Reason
		value  string
	}
	index := make(map[key]int)
	var out []MatchSummary
	for _, m := range report.Matches {
		k := key{m.Reason, m.Value}
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, MatchSummary{Reason: m.Reason, Value: m.Value, Count: 1})
	}
	return out
}

// DisplayValue renders a summary's value for prompts and logs.  Secret
// matches are fingerprinted unless reveal is set; other values are truncated
// at 200 bytes.
func (s MatchSummary) DisplayValue(reveal bool) string {
	if s.Reason == ReasonSecretPattern {
		return redact.SecretPreview(s.Value, reveal)
	}
	return redact.Truncate(s.Value)
}

// Label renders the full prompt line for one summary, including the reason
// and a repeat count when above one.
func (s MatchSummary) Label(reveal bool) string {
	label := fmt.Sprintf("%s (reason: %s)", s.DisplayValue(reveal), s.Reason.Label())
	if s.Count > 1 {
		label += fmt.Sprintf(" x%d", s.Count)
	}
	return label
}

// FormatMatches renders the "Matched content" block shown in interactive
// prompts, or "" when the report has no matches.
func FormatMatches(report *Report, layer Layer, reveal bool) string {
	if len(report.Matches) == 0 {
		return ""
	}
	lines := []string{fmt.Sprintf("Matched content (%s):", layer)}
	for _, summary := range SummarizeMatches(report) {
		lines = append(lines, "- "+summary.Label(reveal))
	}
	return strings.Join(lines, "\n")
}
