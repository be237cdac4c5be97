// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nostrlang/coderunner"
	"github.com/urfave/cli/v2"
)

var (
	// version is set via ldflags at build time
	version = "dev"
)

func withApp(fn func(ctx context.Context, app *App) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		app, err := NewApp(c)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := app.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "error closing app: %v\n", closeErr)
			}
		}()

		return fn(c.Context, app)
	}
}

func runNode(ctx context.Context, app *App) error {
	return app.Run(ctx)
}

func generateKey(c *cli.Context) error {
	var (
		filename string
		err      error
	)

	if c.IsSet("keyfile") {
		filename = c.String("keyfile")
	} else if filename, err = defaultKeyPath(); err != nil {
		return err
	}

	pemBytes, err := coderunner.GeneratePEM()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	if err := savePEM(filename, pemBytes); err != nil {
		return fmt.Errorf("saving private key: %w", err)
	}

	fmt.Printf("Generated new private key and saved to %s\n", filename)
	return nil
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "coderunner",
		Version: version,
		Usage:   "Executes sandboxed code submitted as signed events over nostr relays and publishes the results.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "name of the config file (default ~/.config/coderunner/config.yaml)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connects to the configured relays and starts executing incoming code events.",
				Action: withApp(runNode),
			},
			{
				Name:  "generatekey",
				Usage: "Generates a new private key for this node.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "keyfile", Usage: "name of the key file (default ~/.config/coderunner/key.pem)."},
				},
				Action: generateKey,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
