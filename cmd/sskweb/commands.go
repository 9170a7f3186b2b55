package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"sskweb/internal/capture"
	"sskweb/internal/ics"
	appLog "sskweb/internal/log"
	"sskweb/internal/site"
	"sskweb/internal/web"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Render the static site into the output directory.",
		Action: func(c *cli.Context) error {
			d, err := loadDeps(c)
			if err != nil {
				return err
			}
			b, err := d.builder()
			if err != nil {
				return err
			}
			_, err = b.Build(c.Context)
			return err
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Build once, then serve the output and rebuild on the configured schedule.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
			&cli.BoolFlag{Name: "no-build", Usage: "Serve the existing output without building first"},
		},
		Action: func(c *cli.Context) error {
			d, err := loadDeps(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				d.cfg.Listen = l
			}

			b, err := d.builder()
			if err != nil {
				return err
			}
			if !c.Bool("no-build") {
				if _, err := b.Build(c.Context); err != nil {
					return err
				}
			}

			scheduler, err := startRebuilds(c.Context, d.cfg.RebuildCron, d, b)
			if err != nil {
				return err
			}
			defer func() {
				<-scheduler.Stop().Done()
			}()

			return web.NewServer(d.cfg, d.event, d.tr, d.gen).Run(c.Context)
		},
	}
}

// startRebuilds schedules periodic rebuilds so the status banner flips once
// the event is over and the static .ics carries a recent DTSTAMP.
func startRebuilds(ctx context.Context, schedule string, d *deps, b *site.Builder) (*cron.Cron, error) {
	scheduler := cron.New(
		cron.WithLocation(d.event.Zone()),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	_, err := scheduler.AddFunc(schedule, func() {
		if _, err := b.Build(ctx); err != nil {
			appLog.Error("scheduled rebuild failed", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	appLog.Info("rebuild scheduler started", "schedule", schedule)
	return scheduler, nil
}

// cronLogger routes cron's own messages through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Info("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

func icsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ics",
		Usage: "Write the event calendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: `Directory to write "<prefix>-<year>.ics" into, or "-" for stdout`,
				Value: "-",
			},
		},
		Action: func(c *cli.Context) error {
			d, err := loadDeps(c)
			if err != nil {
				return err
			}
			return d.gen.ExportAndDownload(fileTarget(c.String("out")))
		},
	}
}

// fileTarget delivers downloads into dir, or to stdout for "-".
func fileTarget(dir string) ics.Downloader {
	return ics.DownloaderFunc(func(filename, _ string, payload []byte) error {
		if dir == "-" {
			_, err := os.Stdout.Write(payload)
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return err
		}
		appLog.Info("calendar file written", "path", path)
		return nil
	})
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Screenshot the landing page of a running server as the social preview image.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Page to capture (default: the default-locale page on the configured listen address)"},
			&cli.StringFlag{Name: "out", Usage: "PNG path (default: <output_dir>/" + site.OGImageName + ")"},
		},
		Action: func(c *cli.Context) error {
			d, err := loadDeps(c)
			if err != nil {
				return err
			}

			target := c.String("url")
			if target == "" {
				target = "http://" + strings.TrimPrefix(d.cfg.Listen, "http://") + "/" + d.cfg.DefaultLocale + "/"
			}
			out := c.String("out")
			if out == "" {
				out = filepath.Join(d.cfg.OutputDir, site.OGImageName)
			}

			appLog.Info("capturing preview image", "url", target, "out", out)
			return capture.PreviewPNG(c.Context, capture.Options{
				URL:        target,
				OutputPath: out,
				Width:      d.cfg.Capture.Width,
				Height:     d.cfg.Capture.Height,
			})
		},
	}
}
