package coderunner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// LoopConfig bounds the execution loop's concurrency and per-task
// lifetime.
type LoopConfig struct {
	MaxConcurrentExecutions int64
	ExecutionTimeout        time.Duration
}

// DefaultLoopConfig matches the defaults named in SPEC_FULL.md §5.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxConcurrentExecutions: 16,
		ExecutionTimeout:        30 * time.Second,
	}
}

// Loop is the execution loop (C7): it wires a relay Session to a
// Dispatcher, spawning a bounded concurrent task per inbound code event
// and publishing the resulting output event back through the same
// session.
type Loop struct {
	session    *Session
	dispatcher *Dispatcher
	workspaces *WorkspaceManager
	holder     *KeyHolder
	log        *logrus.Entry
	timeout    time.Duration

	tasks *errgroup.Group
}

func NewLoop(session *Session, dispatcher *Dispatcher, workspaces *WorkspaceManager, holder *KeyHolder, cfg LoopConfig, log *logrus.Entry) *Loop {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	tasks := &errgroup.Group{}
	tasks.SetLimit(int(cfg.MaxConcurrentExecutions))

	return &Loop{
		session:    session,
		dispatcher: dispatcher,
		workspaces: workspaces,
		holder:     holder,
		log:        log,
		timeout:    cfg.ExecutionTimeout,
		tasks:      tasks,
	}
}

// Run reads from the session until it returns a terminal error. For
// every EVENT message it spawns an independent execution task; other
// message kinds are logged and otherwise ignored. Run returns once the
// session terminates; outstanding tasks are given until ctx is done to
// finish via Wait, matching spec.md §5's "tasks MAY be allowed to
// finish" cancellation policy.
func (l *Loop) Run(ctx context.Context) error {
	for {
		msg, err := l.session.Recv(ctx)
		if err != nil {
			waitErr := l.tasks.Wait()
			if waitErr != nil {
				l.log.WithError(waitErr).Warn("execution tasks reported errors during shutdown")
			}
			return err
		}

		switch msg.Kind {
		case MsgEvent:
			l.spawn(ctx, msg.Event)
		case MsgOK:
			l.log.WithFields(logrus.Fields{"event_id": msg.OKID, "accepted": msg.OK}).Debug("relay OK")
		case MsgNotice:
			l.log.WithField("notice", msg.Text).Info("relay notice")
		case MsgEOSE:
			l.log.WithField("sub_id", msg.SubID).Debug("end of stored events")
		}
	}
}

func (l *Loop) spawn(ctx context.Context, ev *Event) {
	l.tasks.Go(func() error {
		taskCtx := ctx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		err := l.dispatcher.IdentifyAndExecute(taskCtx, ev, l.holder, l.workspaces, l.session.Send)
		if err != nil {
			l.log.WithError(err).WithField("input_id", ev.Nostr.ID).Error("building or publishing output event")
		}
		return nil
	})
}
