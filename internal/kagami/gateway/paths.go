package gateway

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// PathDecision is the send-firewall verdict for one path.
type PathDecision int

const (
	PathAllow PathDecision = iota
	PathDeny
)

// SensitivePaths resolves send decisions for filesystem paths and exposes the
// ignore epoch used to invalidate cached scan results when the rules change.
type SensitivePaths interface {
	// DecisionSend returns whether the contents of path may be sent to the
	// model.
	DecisionSend(path string) PathDecision

	// MentionsIn returns the denied path strings that occur verbatim in text.
	MentionsIn(text string) []string

	// IgnoreEpoch is bumped every time the rules change.
	IgnoreEpoch() uint64

	// FormatDeniedMessage is the body substituted for a denied output.
	FormatDeniedMessage() string
}

// PathResolver is the rule-list implementation of SensitivePaths.  Rules are
// absolute or workspace-relative path prefixes; a path is denied when any
// rule is a prefix of it (component-wise).
type PathResolver struct {
	mu    sync.RWMutex
	rules []string
	epoch atomic.Uint64
}

// NewPathResolver builds a resolver over the given deny rules.
func NewPathResolver(rules []string) *PathResolver {
	r := &PathResolver{}
	r.SetRules(rules)
	return r
}

// SetRules replaces the rule list and bumps the ignore epoch.
func (r *PathResolver) SetRules(rules []string) {
	cleaned := make([]string, 0, len(rules))
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(rule))
	}
	r.mu.Lock()
	r.rules = cleaned
	r.mu.Unlock()
	r.epoch.Add(1)
}

// DecisionSend denies any path under a configured rule.
func (r *PathResolver) DecisionSend(path string) PathDecision {
	path = filepath.Clean(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.rules {
		if path == rule || strings.HasPrefix(path, rule+string(filepath.Separator)) {
			return PathDeny
		}
	}
	return PathAllow
}

// MentionsIn returns each denied rule string that occurs in text.
func (r *PathResolver) MentionsIn(text string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []string
	for _, rule := range r.rules {
		if strings.Contains(text, rule) {
			found = append(found, rule)
		}
	}
	return found
}

// IgnoreEpoch returns the current rule epoch.
func (r *PathResolver) IgnoreEpoch() uint64 {
	return r.epoch.Load()
}

// FormatDeniedMessage returns the body used in place of a denied output.
func (r *PathResolver) FormatDeniedMessage() string {
	return "output withheld: the source path is excluded from model requests"
}
