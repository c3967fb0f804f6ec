package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/wudi/heyrt/config"
	"github.com/wudi/heyrt/runtime"
	"github.com/wudi/heyrt/version"
)

func main() {
	app := &cli.Command{
		Name:  "hey",
		Usage: "an embeddable Smalltalk-style scripting core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML runtime config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the config's log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			demoCommand,
			replCommand,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := buildRuntime(cmd)
			if err != nil {
				return err
			}
			if isatty.IsTerminal(os.Stdin.Fd()) {
				return runREPL(rt)
			}
			return runDemo()
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "hey: %v\n", err)
		os.Exit(1)
	}
}

var demoCommand = &cli.Command{
	Name:  "demo",
	Usage: "run a small built-in Counter class demonstration",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runDemo()
	},
}

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "start an interactive session against a fresh Runtime",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		rt, err := buildRuntime(cmd)
		if err != nil {
			return err
		}
		return runREPL(rt)
	},
}

// buildRuntime loads a config.Config from --config (or the defaults),
// applies any --log-level override, and constructs an empty Runtime
// with structured logging wired in (spec.md §6/§4.13 expansion).
func buildRuntime(cmd *cli.Command) (*runtime.Runtime, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	rt := runtime.Empty(runtime.WithConfig(cfg), runtime.WithLogger(logger))
	logger.Info("runtime constructed", "sessionID", rt.ID(), "version", version.Version())
	return rt, nil
}

func runREPL(rt *runtime.Runtime) error {
	sh, err := newShell(rt)
	if err != nil {
		return err
	}
	defer sh.Close()
	return sh.run()
}
