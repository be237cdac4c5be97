package coderunner

import (
	"context"
	"fmt"
	"time"
)

// Outcome is the result of classifying an incoming event, mirroring
// original_source/utils.rs's CodeLanguage enum (Rust/Python/None) but
// additionally distinguishing "failed verification" from "no matching
// language", which the dispatcher must report separately per spec.md
// §4.5.
type Outcome int

const (
	OutcomeHandler Outcome = iota
	OutcomeUnsupported
	OutcomeUnverified
)

// Diagnostic content published when classification does not yield a
// handler.
const (
	DiagnosticUnsupported = "No language support"
	DiagnosticUnverified  = "Invalid note"
)

// recognizedLanguages is the dispatch table mapping an "l" tag value to
// the handler kind that runs it. Adding a language means adding an entry
// here together with the handler kind that runs it (see Handler in
// handler.go, spec.md §4.4.3).
var recognizedLanguages = map[string]HandlerKind{
	"rust":   HandlerKindNative,
	"python": HandlerKindInterpreter,
}

// Classification is the outcome of Dispatcher.Classify.
type Classification struct {
	Outcome Outcome
	Handler *Handler
	InputID string
}

// Dispatcher is the only component that understands the "l" tag
// vocabulary; handlers stay language-agnostic above this boundary
// (spec.md §4.5).
type Dispatcher struct {
	toolchains *ToolchainConfig
	timeout    time.Duration
}

func NewDispatcher(toolchains *ToolchainConfig, executionTimeout time.Duration) *Dispatcher {
	if toolchains == nil {
		toolchains = &ToolchainConfig{}
	}
	return &Dispatcher{toolchains: toolchains, timeout: executionTimeout}
}

// Classify verifies signed and, if it passes, reads its first "l" tag
// to decide between a handler, Unsupported, and Unverified.
func (d *Dispatcher) Classify(signed *Event) Classification {
	if err := signed.Verify(); err != nil {
		return Classification{Outcome: OutcomeUnverified, InputID: signed.Nostr.ID}
	}

	lang, ok := signed.FirstTagValue(TagLanguage)
	if !ok {
		return Classification{Outcome: OutcomeUnsupported, InputID: signed.Nostr.ID}
	}

	kind, ok := recognizedLanguages[lang]
	if !ok {
		return Classification{Outcome: OutcomeUnsupported, InputID: signed.Nostr.ID}
	}

	req := CodeRequest{
		Language:   lang,
		Source:     signed.Nostr.Content,
		InputID:    signed.Nostr.ID,
		UserPubkey: signed.Nostr.PubKey,
	}
	override, _ := d.toolchains.Lookup(lang)

	var h *Handler
	switch kind {
	case HandlerKindNative:
		h = &Handler{Kind: HandlerKindNative, native: newNativeHandler(req, override, d.timeout)}
	case HandlerKindInterpreter:
		h = &Handler{Kind: HandlerKindInterpreter, interpreter: newInterpreterHandler(req, override, d.timeout)}
	default:
		panic(fmt.Sprintf("coderunner: recognized language %q maps to unhandled kind %d", lang, kind))
	}

	return Classification{Outcome: OutcomeHandler, Handler: h, InputID: signed.Nostr.ID}
}

// request exposes the CodeRequest backing h, for the dispatcher's own use
// when acquiring a workspace.
func (h *Handler) request() CodeRequest {
	switch h.Kind {
	case HandlerKindNative:
		return h.native.req
	case HandlerKindInterpreter:
		return h.interpreter.req
	default:
		panic(fmt.Sprintf("coderunner: unhandled handler kind %d", h.Kind))
	}
}

// IdentifyAndExecute classifies signed, runs the resulting handler to
// completion inside a workspace acquired from workspaces, and hands the
// signed output event to publish before returning. publish is called
// while the workspace (and its per-owner mutex) is still held — spec.md
// §3 requires the workspace to be destroyed only after the output event
// is published, and §5 requires the per-owner mutex to be held for the
// entire prepare+execute+publish span — so the workspace's release,
// deferred below, only runs once publish has returned. It returns an
// error only when signing the output event or publishing it fails; every
// failure attributable to signed itself is instead turned into the
// content of a published 301 (spec.md §7).
func (d *Dispatcher) IdentifyAndExecute(ctx context.Context, signed *Event, holder *KeyHolder, workspaces *WorkspaceManager, publish func(*Event) error) error {
	cl := d.Classify(signed)

	switch cl.Outcome {
	case OutcomeUnverified:
		out, err := buildOutputEvent(holder, CodeRequest{InputID: cl.InputID}, DiagnosticUnverified)
		if err != nil {
			return err
		}
		return publish(out)
	case OutcomeUnsupported:
		lang, _ := signed.FirstTagValue(TagLanguage)
		req := CodeRequest{InputID: cl.InputID, UserPubkey: signed.Nostr.PubKey, Language: lang}
		out, err := buildOutputEvent(holder, req, DiagnosticUnsupported)
		if err != nil {
			return err
		}
		return publish(out)
	}

	req := cl.Handler.request()

	ws, release, err := workspaces.Acquire(req.UserPubkey)
	if err != nil {
		out, buildErr := buildOutputEvent(holder, req, fmt.Sprintf("workspace error: %v", err))
		if buildErr != nil {
			return buildErr
		}
		return publish(out)
	}
	defer release()

	if err := cl.Handler.Prepare(ws); err != nil {
		out, buildErr := buildOutputEvent(holder, req, err.Error())
		if buildErr != nil {
			return buildErr
		}
		return publish(out)
	}

	result := cl.Handler.Execute(ctx)
	out, err := cl.Handler.ToOutputEvent(holder, result)
	if err != nil {
		return err
	}
	return publish(out)
}
