package tools

import (
	"encoding/json"

	"github.com/bdobrica/Kagami/internal/kagami/gateway"
)

// Provenance records where the bytes of a tool output came from.
type Provenance interface {
	// OriginType is the short origin tag used in approval commands.
	OriginType() string

	// OriginPath is the origin detail (path, cwd, server/tool), when any.
	OriginPath() (string, bool)

	// Source maps the provenance onto an exclusion-counter source.
	Source() gateway.Source

	isProvenance()
}

// FilesystemProvenance marks output read from a local file.
type FilesystemProvenance struct {
	Path string
}

// ShellProvenance marks output produced by a shell command.
type ShellProvenance struct {
	Cwd string
}

// McpProvenance marks output produced by an MCP server tool.
type McpProvenance struct {
	Server string
	Tool   string
}

// UnattestedProvenance marks output whose producer Kagami does not gate.
type UnattestedProvenance struct {
	Origin string
	Path   string
}

func (FilesystemProvenance) isProvenance() {}
func (ShellProvenance) isProvenance()      {}
func (McpProvenance) isProvenance()        {}
func (UnattestedProvenance) isProvenance() {}

func (FilesystemProvenance) OriginType() string { return "filesystem" }
func (ShellProvenance) OriginType() string      { return "shell" }
func (McpProvenance) OriginType() string        { return "mcp" }
func (p UnattestedProvenance) OriginType() string {
	return p.Origin
}

func (p FilesystemProvenance) OriginPath() (string, bool) { return p.Path, p.Path != "" }
func (p ShellProvenance) OriginPath() (string, bool)      { return p.Cwd, p.Cwd != "" }
func (p McpProvenance) OriginPath() (string, bool)        { return p.Server + "/" + p.Tool, true }
func (p UnattestedProvenance) OriginPath() (string, bool) { return p.Path, p.Path != "" }

func (FilesystemProvenance) Source() gateway.Source { return gateway.SourceFilesystem }
func (ShellProvenance) Source() gateway.Source      { return gateway.SourceShell }
func (McpProvenance) Source() gateway.Source        { return gateway.SourceMcp }
func (UnattestedProvenance) Source() gateway.Source { return gateway.SourceOther }

// ContentItemType discriminates output content items.  Only input-text items
// are scanned by the gateway.
type ContentItemType string

const (
	ContentInputText  ContentItemType = "input_text"
	ContentInputImage ContentItemType = "input_image"
)

// ContentItem is one element of a structured output body.
type ContentItem struct {
	Type ContentItemType
	Text string
}

// OutputBody is either a plain text or an ordered list of content items.
// Items is authoritative when non-nil.
type OutputBody struct {
	Text  string
	Items []ContentItem
}

// TextBody builds a plain-text body.
func TextBody(text string) OutputBody {
	return OutputBody{Text: text}
}

// ItemsBody builds a structured body.
func ItemsBody(items ...ContentItem) OutputBody {
	return OutputBody{Items: items}
}

// Preview flattens the body into a loggable string.
func (b OutputBody) Preview() string {
	if b.Items == nil {
		return b.Text
	}
	var out string
	for _, item := range b.Items {
		if item.Type == ContentInputText {
			if out != "" {
				out += "\n"
			}
			out += item.Text
		}
	}
	return out
}

// Output is the result a handler returns, owned by the dispatcher until it
// is packaged into a response.
type Output struct {
	Kind Kind

	// Function fields.
	Body    OutputBody
	Success *bool

	// Mcp fields: McpResult is the raw result document on success, McpErr
	// the error string otherwise.
	McpResult json.RawMessage
	McpErr    string

	Provenance Provenance
}

// FunctionOutput builds a function result.
func FunctionOutput(body OutputBody, success *bool, provenance Provenance) *Output {
	return &Output{Kind: KindFunction, Body: body, Success: success, Provenance: provenance}
}

// McpOutput builds an MCP result.
func McpOutput(result json.RawMessage, errMessage string, provenance Provenance) *Output {
	return &Output{Kind: KindMcp, McpResult: result, McpErr: errMessage, Provenance: provenance}
}

// LogPreview flattens the output for telemetry.
func (o *Output) LogPreview() string {
	if o.Kind == KindMcp {
		if o.McpErr != "" {
			return o.McpErr
		}
		return string(o.McpResult)
	}
	return o.Body.Preview()
}

// SuccessForLogging interprets the success flag for telemetry; an unset flag
// counts as success, an MCP error does not.
func (o *Output) SuccessForLogging() bool {
	if o.Kind == KindMcp {
		return o.McpErr == ""
	}
	return o.Success == nil || *o.Success
}

// ResponseItem is the packaged result returned to the model, tied to the
// originating call.
type ResponseItem struct {
	CallID string
	Kind   Kind

	Body    OutputBody
	Success *bool

	McpResult json.RawMessage
	McpErr    string
}

// IntoResponse converts the output into a response for callID.
func (o *Output) IntoResponse(callID string) *ResponseItem {
	return &ResponseItem{
		CallID:    callID,
		Kind:      o.Kind,
		Body:      o.Body,
		Success:   o.Success,
		McpResult: o.McpResult,
		McpErr:    o.McpErr,
	}
}

// boolPtr is a small helper for Success flags.
func boolPtr(v bool) *bool {
	return &v
}
