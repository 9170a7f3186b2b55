package site

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// buildSitemap lists one URL per locale page.
func buildSitemap(siteURL string, locales []string, now time.Time) ([]byte, error) {
	set := urlSet{XMLNS: sitemapNS}
	for _, locale := range locales {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     pageURL(siteURL, locale),
			LastMod: now.UTC().Format("2006-01-02"),
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("site: encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

func robotsTxt(siteURL string, sitemap bool) []byte {
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\n")
	if sitemap {
		fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", strings.TrimRight(siteURL, "/"))
	}
	return []byte(b.String())
}
