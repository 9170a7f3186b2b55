package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"sskweb/internal/config"
	"sskweb/internal/event"
	"sskweb/internal/i18n"
	"sskweb/internal/ics"
	appLog "sskweb/internal/log"
	"sskweb/internal/site"
)

// deps is everything the commands share, built once per invocation.
type deps struct {
	cfg   *config.Config
	event event.Config
	tr    *i18n.Translator
	gen   *ics.Generator
}

func loadDeps(c *cli.Context) (*deps, error) {
	configPath := c.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	appLog.Setup(appLog.Options{
		Level:     appLog.Level(cfg.LogLevel),
		JSON:      cfg.LogJSON,
		SentryDSN: cfg.SentryDSN,
	})

	ev := event.Default()
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	var tr *i18n.Translator
	if cfg.TranslationsDir != "" {
		tr, err = i18n.Load(os.DirFS(cfg.TranslationsDir), ".", cfg.DefaultLocale)
	} else {
		tr, err = i18n.LoadEmbedded(cfg.DefaultLocale)
	}
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	gen := ics.NewGenerator(ev, ics.Options{
		ProductID:  cfg.Calendar.ProductID,
		UIDDomain:  cfg.UIDDomain(),
		FilePrefix: cfg.Calendar.FilePrefix,
	})

	appLog.Info("effective config",
		"config_path", configPath,
		"site_url", cfg.SiteURL,
		"sitemap", cfg.Sitemap,
		"locales", cfg.Locales,
		"default_locale", cfg.DefaultLocale,
		"output_dir", cfg.OutputDir,
		"event", ev.Title,
		"event_start_utc", ev.StartISOStringUTC(),
	)

	return &deps{cfg: cfg, event: ev, tr: tr, gen: gen}, nil
}

func (d *deps) builder() (*site.Builder, error) {
	return site.NewBuilder(d.cfg, d.event, d.tr, d.gen)
}
