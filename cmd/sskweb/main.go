package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	appLog "sskweb/internal/log"
)

const version = "0.1.0"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "sskweb",
		Usage:   "Build and preview the Slovanské Silové Klání website.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./sskweb.yaml",
				Usage:   "Path to config file (created with defaults if missing)",
				EnvVars: []string{"SSK_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			serveCommand(),
			icsCommand(),
			captureCommand(),
		},
	}

	err := app.RunContext(ctx, os.Args)
	appLog.Close()
	if err != nil {
		appLog.Error("sskweb failed", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
