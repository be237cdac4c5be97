package coderunner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// mainFnPattern matches an already-wrapped `fn main() { ... }` body,
// dot-all so the body may span multiple lines — the Go equivalent of the
// `(?s)fn main\s*\(\s*\)\s*\{.*\}` regex in the original rust_handler.rs.
var mainFnPattern = regexp.MustCompile(`(?s)fn main\s*\(\s*\)\s*\{.*\}`)

const (
	defaultNativeCommand  = "rust-script"
	defaultNativeFileName = "main.rs"
)

// nativeHandler is the reference case for a compiled, single-file
// language (spec.md §4.4.1). Grounded on original_source's
// rust_handler.rs: split-on-tab, strip line comments, join, wrap in
// fn main if not already present.
type nativeHandler struct {
	req     CodeRequest
	command string
	args    []string
	timeout time.Duration

	ws       *Workspace
	prepared string
}

func newNativeHandler(req CodeRequest, override ToolchainOverride, timeout time.Duration) *nativeHandler {
	command, args := defaultNativeCommand, []string(nil)
	if override.Command != "" {
		command, args = override.Command, override.Args
	}
	return &nativeHandler{req: req, command: command, args: args, timeout: timeout}
}

// normalizeNative implements spec.md §4.4.1's four-step normalization.
// It is idempotent: running it twice yields the same string, since an
// already-wrapped `fn main(){...}` body is left untouched by the regex
// branch and contains no tabs or "//" markers of its own to re-split.
func normalizeNative(source string) string {
	segments := strings.Split(source, "\t")
	stripped := make([]string, 0, len(segments))
	for _, seg := range segments {
		if idx := strings.Index(seg, "//"); idx >= 0 {
			seg = seg[:idx]
		}
		stripped = append(stripped, seg)
	}
	joined := strings.Join(stripped, " ")

	if mainFnPattern.MatchString(joined) {
		return joined
	}
	return fmt.Sprintf("fn main() { %s }", joined)
}

func (h *nativeHandler) prepare(ws *Workspace) error {
	h.prepared = normalizeNative(h.req.Source)
	if err := ws.WriteFile(defaultNativeFileName, []byte(h.prepared)); err != nil {
		return fmt.Errorf("writing native source: %w", err)
	}
	h.ws = ws
	return nil
}

// ws is kept only to build the argument list in execute; it is not part
// of the handler's exported surface.
func (h *nativeHandler) execute(ctx context.Context) ExecutionResult {
	args := append(append([]string(nil), h.args...), h.ws.Path(defaultNativeFileName))
	return runToolchain(ctx, h.timeout, h.command, args...)
}
