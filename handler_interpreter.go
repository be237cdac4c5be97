package coderunner

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultInterpreterCommand  = "python3"
	defaultInterpreterFileName = "script.py"
	defaultFormatterCommand    = "black"
)

// interpreterHandler is the reference case for an interpreted language
// (spec.md §4.4.2): no source transformation beyond an optional
// formatting pass. Grounded on original_source's python_handler.rs,
// which writes the source as-is and shells out to `black` before
// running it with `python3`.
type interpreterHandler struct {
	req       CodeRequest
	command   string
	args      []string
	formatter string
	fileName  string
	timeout   time.Duration

	ws *Workspace
}

func newInterpreterHandler(req CodeRequest, override ToolchainOverride, timeout time.Duration) *interpreterHandler {
	command, args := defaultInterpreterCommand, []string(nil)
	if override.Command != "" {
		command, args = override.Command, override.Args
	}
	return &interpreterHandler{
		req:       req,
		command:   command,
		args:      args,
		formatter: defaultFormatterCommand,
		fileName:  defaultInterpreterFileName,
		timeout:   timeout,
	}
}

func (h *interpreterHandler) prepare(ws *Workspace) error {
	if err := ws.WriteFile(h.fileName, []byte(h.req.Source)); err != nil {
		return fmt.Errorf("writing interpreter source: %w", err)
	}
	h.ws = ws

	// Formatting is best-effort: the formatter's result is ignored, so a
	// formatter that cannot be spawned or that exits non-zero never
	// blocks execution.
	if h.formatter != "" {
		_ = runToolchain(context.Background(), h.timeout, h.formatter, ws.Path(h.fileName))
	}
	return nil
}

func (h *interpreterHandler) execute(ctx context.Context) ExecutionResult {
	args := append(append([]string(nil), h.args...), h.ws.Path(h.fileName))
	return runToolchain(ctx, h.timeout, h.command, args...)
}
