package coderunner

import (
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// Event kinds recognized by this node. KindCodeRequest carries the
// untrusted source; KindCodeOutput carries the captured result.
const (
	KindCodeRequest = 300
	KindCodeOutput  = 301

	// MaxContentSize bounds the size of a code event's content.
	MaxContentSize = 1 * 1024 * 1024 // 1 MB

	// EventGracePeriodSeconds bounds how far into the future a created_at
	// may sit before the event is rejected outright.
	EventGracePeriodSeconds = 600 // 10 minutes
)

// Tag names used by the tag graph.
const (
	TagLanguage  = "l"
	TagAnswersTo = "a"
	TagUser      = "u"
	TagNotebook  = "N"
	TagCell      = "i"
)

var (
	ErrBadSignature   = errors.New("bad signature")
	ErrBadContentHash = errors.New("bad content hash")
	ErrTooFarFuture   = errors.New("created_at too far in the future")
	ErrContentTooLong = errors.New("content exceeds maximum size")
)

// Event wraps a nostr.Event with the domain-specific checks this node
// needs on top of the wire-level id/signature machinery that
// github.com/nbd-wtf/go-nostr already implements.
type Event struct {
	Nostr *nostr.Event
}

// BuildEvent constructs an unsigned event ready for KeyHolder.Sign.
func BuildEvent(pubkey string, kind int, content string, tags nostr.Tags) *Event {
	return &Event{
		Nostr: &nostr.Event{
			PubKey:    pubkey,
			CreatedAt: nostr.Now(),
			Kind:      kind,
			Tags:      tags,
			Content:   content,
		},
	}
}

// WrapEvent adapts an event received from a relay into our envelope.
func WrapEvent(ev *nostr.Event) *Event {
	return &Event{Nostr: ev}
}

// Verify reports whether the event's id matches the hash of its canonical
// serialization and whether its signature verifies under its own pubkey.
// It returns ErrBadContentHash or ErrBadSignature for those two distinct
// failure modes; before either check it rejects a created_at more than
// EventGracePeriodSeconds in the future (ErrTooFarFuture) and content
// longer than MaxContentSize (ErrContentTooLong). Events failing any check
// are to be treated by callers as if they never arrived.
func (e *Event) Verify() error {
	if e.Nostr.CreatedAt > nostr.Now()+EventGracePeriodSeconds {
		return ErrTooFarFuture
	}
	if len(e.Nostr.Content) > MaxContentSize {
		return ErrContentTooLong
	}
	// See https://github.com/nbd-wtf/go-nostr/pull/119 — GetID recomputes
	// the canonical hash; comparing against the stored id catches any
	// post-signing mutation of a field included in the serialization.
	if e.Nostr.ID != e.Nostr.GetID() {
		return ErrBadContentHash
	}
	ok, err := e.Nostr.CheckSignature()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}

// TagsWithName returns every tag whose first element equals name, in
// event order.
func (e *Event) TagsWithName(name string) []nostr.Tag {
	var out []nostr.Tag
	for _, t := range e.Nostr.Tags {
		if len(t) > 0 && t[0] == name {
			out = append(out, t)
		}
	}
	return out
}

// FirstTagValue returns the second element of the first tag named name,
// if any.
func (e *Event) FirstTagValue(name string) (string, bool) {
	t := e.Nostr.Tags.Find(name)
	if t == nil || len(t) < 2 {
		return "", false
	}
	return t[1], true
}

// CodeRequest is the data derived from a verified kind-300 event. It is
// created once by the dispatcher and consumed by exactly one handler
// invocation.
type CodeRequest struct {
	Language   string
	Source     string
	InputID    string
	UserPubkey string
}

// ExecutionResult is the outcome of running a prepared source file: either
// the captured stdout (Ok) or an error/diagnostic payload.
type ExecutionResult struct {
	Ok     bool
	Output string
}

func OkResult(output string) ExecutionResult  { return ExecutionResult{Ok: true, Output: output} }
func ErrResult(output string) ExecutionResult { return ExecutionResult{Ok: false, Output: output} }

// Content returns the text that belongs in the output event, regardless
// of whether execution succeeded.
func (r ExecutionResult) Content() string {
	if r.Output == "" {
		return "no output"
	}
	return r.Output
}
