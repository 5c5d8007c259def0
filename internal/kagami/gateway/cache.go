package gateway

import (
	"sync"

	"github.com/bdobrica/Kagami/common/redact"
)

// cacheKey identifies one remembered text or value within one rule epoch.
type cacheKey struct {
	fingerprint string
	epoch       uint64
}

// Cache remembers operator allow decisions for the lifetime of a session.
// Entries are keyed by the SHA-256 fingerprint of the exact text plus the
// ignore epoch, so a rule change invalidates everything remembered before
// it.  Safe for concurrent use from multiple dispatch tasks.
type Cache struct {
	mu sync.RWMutex
	// safeTexts holds full texts the operator allowed for the session.
	safeTexts map[cacheKey]struct{}
	// safeValues holds individual matched values allowed for the session.
	safeValues map[cacheKey]struct{}
	// redactedValues holds values that were redacted earlier this session so
	// recurrences are flagged even in contexts whose pattern scan is off.
	redactedValues map[cacheKey]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		safeTexts:      make(map[cacheKey]struct{}),
		safeValues:     make(map[cacheKey]struct{}),
		redactedValues: make(map[cacheKey]string),
	}
}

func fingerprint(text string) string {
	return redact.ShortSHA256(text) + ":" + redact.ShortSHA256("kagami:"+text)
}

// RememberSafeTextForEpoch records that the exact text is allowed within the
// given epoch.  The match is exact-text only, never substring.
func (c *Cache) RememberSafeTextForEpoch(text string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.safeTexts[cacheKey{fingerprint(text), epoch}] = struct{}{}
}

// IsSafeTextForEpoch reports whether the exact text was allowed in epoch.
func (c *Cache) IsSafeTextForEpoch(text string, epoch uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.safeTexts[cacheKey{fingerprint(text), epoch}]
	return ok
}

// RememberSafeReportMatchesForEpoch records every matched value of a report
// as allowed within the given epoch.
func (c *Cache) RememberSafeReportMatchesForEpoch(report *Report, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range report.Matches {
		c.safeValues[cacheKey{fingerprint(m.Value), epoch}] = struct{}{}
	}
}

// IsSafeValueForEpoch reports whether the matched value was allowed in epoch.
func (c *Cache) IsSafeValueForEpoch(value string, epoch uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.safeValues[cacheKey{fingerprint(value), epoch}]
	return ok
}

// RememberRedactedValue records a value that was redacted so later scans can
// flag recurrences via the fingerprint cache.
func (c *Cache) RememberRedactedValue(value string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redactedValues[cacheKey{fingerprint(value), epoch}] = value
}

// RedactedValuesForEpoch returns a snapshot of the remembered redacted
// values for epoch.
func (c *Cache) RedactedValuesForEpoch(epoch uint64) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var values []string
	for key, value := range c.redactedValues {
		if key.epoch == epoch {
			values = append(values, value)
		}
	}
	return values
}
