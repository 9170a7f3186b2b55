package site_test

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sskweb/internal/config"
	"sskweb/internal/event"
	"sskweb/internal/i18n"
	"sskweb/internal/ics"
	"sskweb/internal/site"
)

var beforeEvent = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newBuilder(t *testing.T, mutate func(*config.Config)) (*site.Builder, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	tr, err := i18n.LoadEmbedded(cfg.DefaultLocale)
	require.NoError(t, err)

	ev := event.Default()
	gen := ics.NewGenerator(ev, ics.Options{
		ProductID:  cfg.Calendar.ProductID,
		UIDDomain:  cfg.UIDDomain(),
		FilePrefix: cfg.Calendar.FilePrefix,
		Now:        func() time.Time { return beforeEvent },
	})

	b, err := site.NewBuilder(cfg, ev, tr, gen)
	require.NoError(t, err)
	b.SetClock(func() time.Time { return beforeEvent })
	return b, cfg
}

func readOut(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, name))
	require.NoError(t, err)
	return string(data)
}

func TestBuildWritesSite(t *testing.T) {
	t.Parallel()

	b, cfg := newBuilder(t, nil)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		filepath.Join("cs", "index.html"),
		filepath.Join("en", "index.html"),
		"index.html",
		"slovanske-silove-klani-2026.ics",
		"sitemap.xml",
		"robots.txt",
	}, res.Files)

	cs := readOut(t, cfg, "cs/index.html")
	require.Contains(t, cs, `<html lang="cs">`)
	require.Contains(t, cs, "Slovanské Silové Klání 2026")
	require.Contains(t, cs, "13.06.2026")
	require.Contains(t, cs, "9:30 - 16:00")
	require.Contains(t, cs, "Za Hasičskou Zbrojnicí, Pustiměř")
	require.Contains(t, cs, "Přidat do kalendáře")
	require.Contains(t, cs, `href="/slovanske-silove-klani-2026.ics"`)
	require.Contains(t, cs, `"startDate":"2026-06-13T07:30:00Z"`)
	require.Contains(t, cs, `data-ready="true"`)
	require.NotContains(t, cs, "status.past")

	en := readOut(t, cfg, "en/index.html")
	require.Contains(t, en, `<html lang="en">`)
	require.Contains(t, en, "Add to calendar")
	require.Contains(t, en, `hreflang="cs"`)

	root := readOut(t, cfg, "index.html")
	require.Contains(t, root, "url=/cs/")

	doc := readOut(t, cfg, "slovanske-silove-klani-2026.ics")
	require.NoError(t, ics.Verify(doc, event.Default()))
	parsed, err := ics.Inspect(doc)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(parsed.UID, "@slovanskesiloveklani.cz"))
}

func TestBuildSitemap(t *testing.T) {
	t.Parallel()

	b, cfg := newBuilder(t, nil)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	var set struct {
		URLs []struct {
			Loc     string `xml:"loc"`
			LastMod string `xml:"lastmod"`
		} `xml:"url"`
	}
	require.NoError(t, xml.Unmarshal([]byte(readOut(t, cfg, "sitemap.xml")), &set))
	require.Len(t, set.URLs, 2)
	require.Equal(t, "https://slovanskesiloveklani.cz/cs/", set.URLs[0].Loc)
	require.Equal(t, "https://slovanskesiloveklani.cz/en/", set.URLs[1].Loc)
	require.Equal(t, "2026-05-01", set.URLs[0].LastMod)

	require.Contains(t, readOut(t, cfg, "robots.txt"), "Sitemap: https://slovanskesiloveklani.cz/sitemap.xml")
}

func TestBuildWithoutSitemap(t *testing.T) {
	t.Parallel()

	b, cfg := newBuilder(t, func(c *config.Config) { c.Sitemap = false })
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotContains(t, res.Files, "sitemap.xml")

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "sitemap.xml"))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NotContains(t, readOut(t, cfg, "robots.txt"), "Sitemap:")
}

func TestBuildPastEventBanner(t *testing.T) {
	t.Parallel()

	b, cfg := newBuilder(t, nil)
	b.SetClock(func() time.Time { return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) })
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	cs := readOut(t, cfg, "cs/index.html")
	require.Contains(t, cs, "Letošní ročník už proběhl")
	require.NotContains(t, cs, "Přidat do kalendáře")
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewBuilderRejectsUnknownLocale(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Locales = []string{"cs", "de"}
	tr, err := i18n.LoadEmbedded("cs")
	require.NoError(t, err)

	_, err = site.NewBuilder(cfg, event.Default(), tr, ics.NewGenerator(event.Default(), ics.Options{}))
	require.Error(t, err)
}
