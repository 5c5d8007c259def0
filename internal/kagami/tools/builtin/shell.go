package builtin

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/bdobrica/Kagami/common/spec/toolspec"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
)

// defaultShellTimeout bounds a command that specifies no timeout.
const defaultShellTimeout = 2 * time.Minute

// Shell executes a local command vector and returns combined output with
// shell provenance, which makes the result subject to the unattested-output
// policy.
type Shell struct {
	spec *toolspec.Spec
}

// NewShell builds the handler and its spec.
func NewShell() *Shell {
	return &Shell{spec: mustSpec("shell", "Run a command in the local shell.", `{
		"type": "object",
		"properties": {
			"command": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"workdir": {"type": "string"},
			"timeout_ms": {"type": "integer", "minimum": 1}
		},
		"required": ["command"],
		"additionalProperties": false
	}`)}
}

// Spec returns the model-facing tool spec.
func (h *Shell) Spec() *toolspec.Spec { return h.spec }

// Kind implements tools.Handler.
func (h *Shell) Kind() tools.Kind { return tools.KindFunction }

// IsMutating implements tools.Handler.  Shell commands can do anything, so
// the answer is always true.
func (h *Shell) IsMutating(context.Context, *tools.Invocation) bool { return true }

// Handle implements tools.Handler.
func (h *Shell) Handle(ctx context.Context, inv *tools.Invocation) (*tools.Output, error) {
	payload, ok := inv.Payload.(tools.LocalShellPayload)
	if !ok {
		// The model may also route shell calls as plain function payloads.
		fn, isFn := inv.Payload.(tools.FunctionPayload)
		if !isFn {
			return nil, tools.Fatalf("shell invoked with an incompatible payload")
		}
		if err := h.spec.ValidateArguments(fn.Arguments); err != nil {
			return nil, tools.RespondToModelf("invalid shell arguments: %v", err)
		}
		params, err := decodeShellParams(fn.Arguments)
		if err != nil {
			return nil, tools.RespondToModelf("invalid shell arguments: %v", err)
		}
		payload = tools.LocalShellPayload{Params: params}
	}

	params := payload.Params
	if len(params.Command) == 0 {
		return nil, tools.RespondToModelf("shell: empty command")
	}

	cwd := params.Workdir
	if cwd == "" {
		cwd = inv.Turn.Cwd
	}
	timeout := defaultShellTimeout
	if params.TimeoutMS > 0 {
		timeout = time.Duration(params.TimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, params.Command[0], params.Command[1:]...)
	cmd.Dir = cwd
	out, err := cmd.CombinedOutput()

	success := err == nil
	body := string(out)
	if err != nil && strings.TrimSpace(body) == "" {
		body = err.Error()
	}
	return tools.FunctionOutput(
		tools.TextBody(body),
		&success,
		tools.ShellProvenance{Cwd: cwd},
	), nil
}

// decodeShellParams maps function-call arguments onto shell parameters.
func decodeShellParams(raw []byte) (tools.ShellParams, error) {
	var params tools.ShellParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return tools.ShellParams{}, err
	}
	return params, nil
}
