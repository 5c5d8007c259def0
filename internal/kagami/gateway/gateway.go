package gateway

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bdobrica/Kagami/common/redact"
	"github.com/bdobrica/Kagami/internal/kagami/config"
)

// builtinSecretPatterns are always scanned unless the pattern sub-scan is
// disabled.  They cover the common high-entropy credential shapes.
var builtinSecretPatterns = []string{
	`\b(?:sk|pk|rk)-[A-Za-z0-9]{20,}\b`,
	`\bgh[pousr]_[A-Za-z0-9]{36,}\b`,
	`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`,
	`\bAKIA[0-9A-Z]{16}\b`,
	`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`,
	`\b(?:token|secret|password|apikey|api_key)[=:]\s*\S{8,}`,
	`-----BEGIN [A-Z ]*PRIVATE KEY-----`,
}

// trustedCodeExtensions lists file extensions whose Filesystem-provenance
// contents skip the secret-pattern sub-scan.
var trustedCodeExtensions = map[string]struct{}{
	"c": {}, "cc": {}, "cpp": {}, "cs": {}, "go": {}, "h": {}, "hpp": {},
	"java": {}, "js": {}, "json": {}, "jsx": {}, "kt": {}, "kts": {},
	"m": {}, "mm": {}, "php": {}, "py": {}, "rb": {}, "rs": {}, "scala": {},
	"sh": {}, "sql": {}, "swift": {}, "toml": {}, "ts": {}, "tsx": {},
	"yaml": {}, "yml": {}, "zsh": {},
}

// IsTrustedCodeExtension reports whether ext (without the dot) is in the
// trusted source-code allowlist.
func IsTrustedCodeExtension(ext string) bool {
	_, ok := trustedCodeExtensions[strings.ToLower(ext)]
	return ok
}

// Config controls one gateway instance.  Derive it from the exclusion
// settings with FromExclusion and adjust per call site (e.g. disable
// SecretPatterns for trusted code output).
type Config struct {
	OnMatch        config.OnMatchPolicy
	SecretPatterns bool

	secretRes []*regexp.Regexp
	allowRes  []*regexp.Regexp
}

// FromExclusion builds a gateway Config from the exclusion settings plus any
// session-added patterns.  Patterns that fail to compile are skipped; the
// caller logs them at persistence time.
func FromExclusion(exclusion *config.Exclusion, extraSecret, extraAllow []string) Config {
	cfg := Config{
		OnMatch:        exclusion.OnMatch,
		SecretPatterns: true,
	}
	for _, pattern := range builtinSecretPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			cfg.secretRes = append(cfg.secretRes, re)
		}
	}
	for _, pattern := range append(append([]string{}, exclusion.SecretPatterns...), extraSecret...) {
		if re, err := regexp.Compile(pattern); err == nil {
			cfg.secretRes = append(cfg.secretRes, re)
		}
	}
	for _, pattern := range append(append([]string{}, exclusion.AllowPatterns...), extraAllow...) {
		if re, err := regexp.Compile(pattern); err == nil {
			cfg.allowRes = append(cfg.allowRes, re)
		}
	}
	return cfg
}

// Gateway scans texts for sensitive matches under one Config.
type Gateway struct {
	cfg Config
}

// New returns a Gateway over cfg.
func New(cfg Config) *Gateway {
	return &Gateway{cfg: cfg}
}

// ScanText scans original and returns the sanitized text plus a report.
//
// The scan is deterministic for identical (original, epoch) pairs and cache
// state: a text remembered as safe for the epoch short-circuits to a safe
// report, and remembered-safe values are skipped.  The on-match policy
// decides whether matched values are left in place (off), substituted
// (redact), or the whole text replaced (block).
func (g *Gateway) ScanText(original string, paths SensitivePaths, cache *Cache, epoch uint64) (string, Report) {
	if cache != nil && cache.IsSafeTextForEpoch(original, epoch) {
		return original, Safe()
	}

	var matches []Match

	// Remembered redacted values recur as fingerprint-cache findings even
	// when the pattern sub-scan is off for this provenance.
	if cache != nil {
		for _, value := range cache.RedactedValuesForEpoch(epoch) {
			if cache.IsSafeValueForEpoch(value, epoch) {
				continue
			}
			if strings.Contains(original, value) {
				matches = append(matches, Match{Reason: ReasonFingerprintCache, Value: value})
			}
		}
	}

	if paths != nil {
		for _, mention := range paths.MentionsIn(original) {
			if cache != nil && cache.IsSafeValueForEpoch(mention, epoch) {
				continue
			}
			matches = append(matches, Match{Reason: ReasonIgnoredPath, Value: mention})
		}
	}

	if g.cfg.SecretPatterns {
		for _, re := range g.cfg.secretRes {
			for _, value := range re.FindAllString(original, -1) {
				if g.allowed(value) {
					continue
				}
				if cache != nil && cache.IsSafeValueForEpoch(value, epoch) {
					continue
				}
				matches = append(matches, Match{Reason: ReasonSecretPattern, Value: value})
			}
		}
	}

	if len(matches) == 0 {
		return original, Safe()
	}

	report := Report{
		Layers:  []Layer{Layer2OutputSanitization},
		Matches: matches,
	}
	for _, m := range matches {
		report.Reasons = append(report.Reasons, m.Reason)
	}

	switch g.cfg.OnMatch {
	case config.OnMatchBlock:
		report.Blocked = true
		return redact.BlockedPlaceholder, report
	case config.OnMatchRedact:
		report.Redacted = true
		sanitized := substituteMatches(original, matches)
		if cache != nil {
			for _, m := range matches {
				cache.RememberRedactedValue(m.Value, epoch)
			}
		}
		return sanitized, report
	default: // OnMatchOff: record findings, leave content untouched.
		return original, report
	}
}

// allowed reports whether value is excluded from secret matching by an
// allowlist pattern that covers the whole value.
func (g *Gateway) allowed(value string) bool {
	for _, re := range g.cfg.allowRes {
		if loc := re.FindStringIndex(value); loc != nil && loc[0] == 0 && loc[1] == len(value) {
			return true
		}
	}
	return false
}

// substituteMatches replaces every matched value in text with the redaction
// placeholder, longest values first so overlapping matches cannot resurrect
// a shorter secret.
func substituteMatches(text string, matches []Match) string {
	values := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.Value]; dup {
			continue
		}
		seen[m.Value] = struct{}{}
		values = append(values, m.Value)
	}
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })
	for _, value := range values {
		text = strings.ReplaceAll(text, value, redact.Placeholder)
	}
	return text
}
