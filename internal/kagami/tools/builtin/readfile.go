package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bdobrica/Kagami/common/spec/toolspec"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

// maxReadBytes caps how much of a file a single call returns to the model.
const maxReadBytes = 512 * 1024

// ReadFile reads a local file and returns its contents with filesystem
// provenance, so the send firewall and the trusted-code rules apply.
type ReadFile struct {
	tools.NonMutating
	spec *toolspec.Spec
}

// NewReadFile builds the handler and its spec.
func NewReadFile() *ReadFile {
	return &ReadFile{spec: mustSpec("read_file", "Read a file from the local filesystem.", `{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Absolute or cwd-relative file path."}
		},
		"required": ["path"],
		"additionalProperties": false
	}`)}
}

// Spec returns the model-facing tool spec.
func (h *ReadFile) Spec() *toolspec.Spec { return h.spec }

// Kind implements tools.Handler.
func (h *ReadFile) Kind() tools.Kind { return tools.KindFunction }

// Handle implements tools.Handler.
func (h *ReadFile) Handle(_ context.Context, inv *tools.Invocation) (*tools.Output, error) {
	payload, ok := inv.Payload.(tools.FunctionPayload)
	if !ok {
		return nil, tools.Fatalf("read_file invoked with a non-function payload")
	}
	if err := h.spec.ValidateArguments(payload.Arguments); err != nil {
		return nil, tools.RespondToModelf("invalid read_file arguments: %v", err)
	}

	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(payload.Arguments, &args); err != nil {
		return nil, tools.RespondToModelf("invalid read_file arguments: %v", err)
	}

	path := args.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(inv.Turn.Cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tools.RespondToModelf("read_file: %v", err)
	}
	if len(data) > maxReadBytes {
		data = data[:maxReadBytes]
	}

	success := true
	return tools.FunctionOutput(
		tools.TextBody(string(data)),
		&success,
		tools.FilesystemProvenance{Path: path},
	), nil
}
