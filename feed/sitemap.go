package feed

import (
	"context"
	"encoding/xml"

	"github.com/eringen/sitegen"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap returns a build hook writing sitemap.xml for every page in the
// "all" collection. Pages with `sitemap: false` in their data are left out.
func Sitemap() sitegen.BuildHook {
	return func(ctx context.Context, b *sitegen.BuildResult) error {
		base := b.MetadataString("metadata", "url")
		if base == "" {
			b.Config.Logger.Warn("sitemap skipped: metadata.url is not set")
			return nil
		}
		var urls []sitemapURL
		for _, p := range b.Collections.Pages("all") {
			if p.URL == "" {
				continue
			}
			if include, ok := p.Data["sitemap"].(bool); ok && !include {
				continue
			}
			urls = append(urls, sitemapURL{
				Loc:     AbsoluteURL(sitegen.PrefixURL(b.Config.PathPrefix, p.URL), base),
				LastMod: p.Date.Format("2006-01-02"),
			})
		}
		out, err := encodeXML(sitemapURLSet{
			XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
			URLs:  urls,
		})
		if err != nil {
			return err
		}
		return b.WriteFile("sitemap.xml", out)
	}
}
