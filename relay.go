package coderunner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nbd-wtf/go-nostr"
)

// MessageKind discriminates the shapes a Session can hand back from Recv.
type MessageKind int

const (
	MsgEvent MessageKind = iota
	MsgOK
	MsgNotice
	MsgEOSE
)

// Message is one inbound item from a relay session.
type Message struct {
	Kind MessageKind

	SubID string  // EVENT, EOSE
	Event *Event  // EVENT
	OKID  string  // OK
	OK    bool    // OK
	Text  string  // OK (message), NOTICE (text)
}

// ErrSessionClosed is returned by Recv once the session has torn down.
var ErrSessionClosed = errors.New("relay session closed")

// Session is a long-lived connection to one relay, built as a
// message-passing front end rather than a shared-mutex-wrapped
// connection: outbound publishes are handed over a buffered outbox to one
// writer goroutine, which starts each publish in its own goroutine, and
// inbound frames — from the standing subscription and
// from the relay's own NOTICE stream — fan into a single buffered
// channel the execution loop drains with Recv. This keeps Send safe for
// concurrent callers without ever locking the socket across an
// await/select.
type Session struct {
	url   string
	relay *nostr.Relay

	ctx    context.Context
	cancel context.CancelFunc

	outbox   chan *nostr.Event
	messages chan Message

	subCounter atomic.Uint64
}

// Connect dials url and starts the session's writer goroutine. It does
// not subscribe to anything yet — call Subscribe for that.
func Connect(ctx context.Context, url string) (*Session, error) {
	relay, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to relay %s: %w", url, err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		url:      url,
		relay:    relay,
		ctx:      sessionCtx,
		cancel:   cancel,
		outbox:   make(chan *nostr.Event, 64),
		messages: make(chan Message, 256),
	}

	go s.runWriter()
	go s.runNotices()
	return s, nil
}

func (s *Session) emit(msg Message) {
	select {
	case s.messages <- msg:
	case <-s.ctx.Done():
	}
}

// runWriter drains outbox and hands each event to its own publishOne
// goroutine, so a publish waiting on the relay's OK response never holds
// up the next one; the outcome arrives later as a MsgOK on the messages
// channel.
func (s *Session) runWriter() {
	for {
		select {
		case ev := <-s.outbox:
			go s.publishOne(ev)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) publishOne(ev *nostr.Event) {
	err := s.relay.Publish(s.ctx, *ev)
	msg := Message{Kind: MsgOK, OKID: ev.ID, OK: err == nil}
	if err != nil {
		msg.Text = err.Error()
	}
	s.emit(msg)
}

func (s *Session) runNotices() {
	for {
		select {
		case text, ok := <-s.relay.Notices:
			if !ok {
				return
			}
			s.emit(Message{Kind: MsgNotice, Text: text})
		case <-s.ctx.Done():
			return
		}
	}
}

// Subscribe sends a subscription for filter and returns its (session
// unique) subscription id. Matching EVENT/EOSE frames are fanned into
// the session's message stream under that id.
func (s *Session) Subscribe(filter nostr.Filter) (string, error) {
	sub, err := s.relay.Subscribe(s.ctx, nostr.Filters{filter})
	if err != nil {
		return "", fmt.Errorf("subscribing: %w", err)
	}

	subID := fmt.Sprintf("sub-%d", s.subCounter.Add(1))
	go s.runSubscription(sub, subID)
	return subID, nil
}

func (s *Session) runSubscription(sub *nostr.Subscription, subID string) {
	// EndOfStoredEvents is closed exactly once by go-nostr when EOSE
	// arrives. Reading it in a select alongside sub.Events is only safe
	// once; after it fires we nil out the local var so the closed
	// channel stops being permanently selectable, which would otherwise
	// spin this loop at 100% CPU and flood s.messages with MsgEOSE.
	eose := sub.EndOfStoredEvents
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			s.emit(Message{Kind: MsgEvent, SubID: subID, Event: WrapEvent(ev)})
		case <-eose:
			eose = nil
			s.emit(Message{Kind: MsgEOSE, SubID: subID})
		case <-s.ctx.Done():
			return
		}
	}
}

// Send publishes ev. It enqueues onto the session's outbox and returns
// once the enqueue succeeds — it never waits for the relay's OK, which
// arrives later as its own message via Recv.
func (s *Session) Send(ev *Event) error {
	select {
	case s.outbox <- ev.Nostr:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Recv blocks until the next message is available or ctx is done.
func (s *Session) Recv(ctx context.Context) (Message, error) {
	select {
	case msg, ok := <-s.messages:
		if !ok {
			return Message{}, ErrSessionClosed
		}
		return msg, nil
	case <-s.ctx.Done():
		return Message{}, ErrSessionClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close tears down the session and the underlying relay connection.
func (s *Session) Close() error {
	s.cancel()
	return s.relay.Close()
}

// StandingFilter builds the filter this node subscribes with: every
// kind-300 event carrying a recognized language tag, since the given
// unix timestamp.
func StandingFilter(since nostr.Timestamp, languages []string) nostr.Filter {
	return nostr.Filter{
		Kinds: []int{KindCodeRequest},
		Since: &since,
		Tags:  nostr.TagMap{TagLanguage: languages},
	}
}
