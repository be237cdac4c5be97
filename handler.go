package coderunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// HandlerKind discriminates the closed set of language handlers this node
// knows how to run. Handler dispatch is a tagged variant rather than an
// interface implemented by independently registered types — there is
// exactly one non-nil payload per Handler, and every operation is reached
// through an exhaustive switch on Kind.
type HandlerKind int

const (
	HandlerKindNative HandlerKind = iota
	HandlerKindInterpreter
)

// Handler is the tagged union of every concrete language handler. Adding
// a language (spec.md §4.4.3) means adding a new HandlerKind value, a new
// concrete *xHandler type with its payload field here, one case in each
// of the three switches below and in Dispatcher.Classify and request in
// dispatcher.go, and an entry in recognizedLanguages — the rest of the
// system is unaffected.
type Handler struct {
	Kind        HandlerKind
	native      *nativeHandler
	interpreter *interpreterHandler
}

// Prepare performs the language-specific transform of raw source into a
// runnable artifact and writes it into the workspace.
func (h *Handler) Prepare(ws *Workspace) error {
	switch h.Kind {
	case HandlerKindNative:
		return h.native.prepare(ws)
	case HandlerKindInterpreter:
		return h.interpreter.prepare(ws)
	default:
		panic(fmt.Sprintf("coderunner: unhandled handler kind %d", h.Kind))
	}
}

// Execute invokes the toolchain and captures its streams. Success is
// defined as non-empty stdout (spec.md §4.4, "empty stdout means error" —
// a known imprecise signal kept here for behavioral compatibility).
func (h *Handler) Execute(ctx context.Context) ExecutionResult {
	switch h.Kind {
	case HandlerKindNative:
		return h.native.execute(ctx)
	case HandlerKindInterpreter:
		return h.interpreter.execute(ctx)
	default:
		panic(fmt.Sprintf("coderunner: unhandled handler kind %d", h.Kind))
	}
}

// ToOutputEvent builds the kind-301 event answering this handler's input
// request, signed by holder.
func (h *Handler) ToOutputEvent(holder *KeyHolder, result ExecutionResult) (*Event, error) {
	var req CodeRequest
	switch h.Kind {
	case HandlerKindNative:
		req = h.native.req
	case HandlerKindInterpreter:
		req = h.interpreter.req
	default:
		panic(fmt.Sprintf("coderunner: unhandled handler kind %d", h.Kind))
	}
	return buildOutputEvent(holder, req, result.Content())
}

// buildOutputEvent is shared by every handler kind and by the dispatcher's
// diagnostic (unsupported/unverified) paths.
func buildOutputEvent(holder *KeyHolder, req CodeRequest, content string) (*Event, error) {
	tags := nostr.Tags{}
	if req.InputID != "" {
		tags = append(tags, nostr.Tag{TagAnswersTo, req.InputID})
	}
	if req.UserPubkey != "" {
		tags = append(tags, nostr.Tag{TagUser, req.UserPubkey})
	}
	if req.Language != "" {
		tags = append(tags, nostr.Tag{TagLanguage, req.Language})
	}

	unsigned := BuildEvent(holder.PublicKey(), KindCodeOutput, content, tags)
	return holder.Sign(unsigned)
}

// runToolchain spawns name with args, waits at most timeout, and
// classifies the result per the execute() contract: non-empty stdout is
// success; otherwise stderr is the error payload; empty-both is "no
// output"; a spawn failure surfaces its own error text.
func runToolchain(ctx context.Context, timeout time.Duration, name string, args ...string) ExecutionResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			// The process could not be spawned at all.
			return ErrResult(err.Error())
		}
	}

	if out := stdout.String(); out != "" {
		return OkResult(out)
	}
	if errOut := stderr.String(); errOut != "" {
		return ErrResult(errOut)
	}
	return ErrResult("no output")
}
