package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bdobrica/Kagami/internal/kagami/config"
)

// LogContext carries the static fields of one redaction-log call site.
type LogContext struct {
	KagamiHome string
	Layer      Layer
	Source     Source
	Tool       string
	OriginType string
	OriginPath string
	Mode       config.LogRedactionsMode
	MaxBytes   int64
	MaxFiles   int
}

// logEntry is the JSONL record written per redaction/block event.
type logEntry struct {
	At         time.Time `json:"at"`
	Layer      Layer     `json:"layer"`
	Source     Source    `json:"source"`
	Tool       string    `json:"tool"`
	OriginType string    `json:"origin_type,omitempty"`
	OriginPath string    `json:"origin_path,omitempty"`
	Redacted   bool      `json:"redacted"`
	Blocked    bool      `json:"blocked"`
	Reasons    []Reason  `json:"reasons"`
	// Original and Sanitized are only present in full mode.
	Original  string `json:"original,omitempty"`
	Sanitized string `json:"sanitized,omitempty"`
}

// LogRedactionEvent appends one event to the redaction log under
// <home>/redactions/, rotating by byte size and pruning old files past the
// file cap.  Logging failures are reported to slog and swallowed; a broken
// log must never fail the tool call.
func LogRedactionEvent(lc *LogContext, report *Report, original, sanitized string) {
	if lc.Mode == config.LogRedactionsOff || (!report.Redacted && !report.Blocked) {
		return
	}

	entry := logEntry{
		At:         time.Now().UTC(),
		Layer:      lc.Layer,
		Source:     lc.Source,
		Tool:       lc.Tool,
		OriginType: lc.OriginType,
		OriginPath: lc.OriginPath,
		Redacted:   report.Redacted,
		Blocked:    report.Blocked,
		Reasons:    report.Reasons,
	}
	if lc.Mode == config.LogRedactionsFull {
		entry.Original = original
		entry.Sanitized = sanitized
	}

	line, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("gateway: marshal redaction log entry", "err", err)
		return
	}

	dir := filepath.Join(lc.KagamiHome, "redactions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Warn("gateway: create redaction log dir", "dir", dir, "err", err)
		return
	}

	path := filepath.Join(dir, "redactions.log")
	if info, err := os.Stat(path); err == nil && lc.MaxBytes > 0 && info.Size()+int64(len(line))+1 > lc.MaxBytes {
		rotated := filepath.Join(dir, fmt.Sprintf("redactions-%d.log", time.Now().UnixNano()))
		if err := os.Rename(path, rotated); err != nil {
			slog.Warn("gateway: rotate redaction log", "err", err)
		}
		pruneRotated(dir, lc.MaxFiles)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Warn("gateway: open redaction log", "path", path, "err", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Warn("gateway: write redaction log", "err", err)
	}
}

// pruneRotated deletes the oldest rotated log files beyond maxFiles.
func pruneRotated(dir string, maxFiles int) {
	if maxFiles <= 0 {
		return
	}
	entries, err := filepath.Glob(filepath.Join(dir, "redactions-*.log"))
	if err != nil || len(entries) <= maxFiles {
		return
	}
	sort.Strings(entries)
	for _, stale := range entries[:len(entries)-maxFiles] {
		if err := os.Remove(stale); err != nil {
			slog.Warn("gateway: prune redaction log", "path", stale, "err", err)
		}
	}
}
