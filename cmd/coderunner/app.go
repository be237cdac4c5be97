package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nostrlang/coderunner"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// App holds what a running node is started from: its configuration, its
// identity and its logger. Run builds the relay sessions, dispatcher and
// workspace manager the execution loop drives.
type App struct {
	config *Config
	holder *coderunner.KeyHolder
	log    *logrus.Entry
}

func NewApp(c *cli.Context) (*App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	holder, err := loadKeyHolder(cfg.KeyStorePath)
	if err != nil {
		return nil, fmt.Errorf("loading key holder: %w", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)

	return &App{
		config: cfg,
		holder: holder,
		log:    logger.WithField("pubkey", holder.PublicKey()),
	}, nil
}

// Run connects to every configured relay, subscribes to the standing
// filter, and drives the execution loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	workspaces := coderunner.NewWorkspaceManager(a.config.WorkspaceRoot)
	if err := workspaces.Sweep(); err != nil {
		return fmt.Errorf("sweeping workspace root: %w", err)
	}

	dispatcher := coderunner.NewDispatcher(&a.config.Toolchains, a.config.executionTimeout())

	languages := []string{"rust", "python"}

	since := nostr.Timestamp(time.Now().Unix())
	filter := coderunner.StandingFilter(since, languages)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, url := range a.config.RelayURLs {
		url := url
		group.Go(func() error {
			return a.runRelay(groupCtx, url, filter, workspaces, dispatcher)
		})
	}
	return group.Wait()
}

func (a *App) runRelay(ctx context.Context, url string, filter nostr.Filter, workspaces *coderunner.WorkspaceManager, dispatcher *coderunner.Dispatcher) error {
	session, err := coderunner.Connect(ctx, url)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer session.Close()

	if _, err := session.Subscribe(filter); err != nil {
		return fmt.Errorf("subscribing on %s: %w", url, err)
	}

	loopCfg := coderunner.LoopConfig{
		MaxConcurrentExecutions: a.config.MaxConcurrentExecutions,
		ExecutionTimeout:        a.config.executionTimeout(),
	}
	loop := coderunner.NewLoop(session, dispatcher, workspaces, a.holder, loopCfg, a.log.WithField("relay", url))
	return loop.Run(ctx)
}

// Close is a no-op: each relay session owns and closes its own
// connection once its Run loop returns.
func (a *App) Close() error {
	return nil
}
