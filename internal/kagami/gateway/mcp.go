package gateway

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ScanJSON walks every string value in a JSON document (MCP content blocks,
// structured content, meta) and scans each through the gateway.  It returns
// the document with sanitized strings written back plus the merged report.
//
// Non-string leaves are left untouched.  An invalid document is returned
// unchanged with a safe report; the MCP transport already validated framing,
// so this only guards against partial results.
func (g *Gateway) ScanJSON(doc []byte, paths SensitivePaths, cache *Cache, epoch uint64) ([]byte, Report) {
	parsed := gjson.ParseBytes(doc)
	if !parsed.Exists() && strings.TrimSpace(string(doc)) != "null" {
		return doc, Safe()
	}

	report := Safe()
	out := doc
	var walk func(value gjson.Result, path string)
	walk = func(value gjson.Result, path string) {
		switch value.Type {
		case gjson.String:
			sanitized, r := g.ScanText(value.String(), paths, cache, epoch)
			report.Merge(r)
			if sanitized != value.String() {
				if next, err := sjson.SetBytes(out, path, sanitized); err == nil {
					out = next
				}
			}
		case gjson.JSON:
			value.ForEach(func(key, child gjson.Result) bool {
				childPath := escapeJSONKey(key.String())
				if path != "" {
					childPath = path + "." + childPath
				}
				walk(child, childPath)
				return true
			})
		default:
			// Null, Number, True, False carry nothing scannable.
		}
	}

	if parsed.IsObject() || parsed.IsArray() {
		parsed.ForEach(func(key, child gjson.Result) bool {
			childPath := escapeJSONKey(key.String())
			walk(child, childPath)
			return true
		})
	}
	return out, report
}

// escapeJSONKey escapes a map key for use in a gjson/sjson path.
func escapeJSONKey(key string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return replacer.Replace(key)
}
