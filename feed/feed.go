// Package feed adds feed support to a site: URL and date filters for feed
// templates, plus build hooks that write an Atom or RSS feed and a
// sitemap from the site's collections.
package feed

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/eringen/sitegen"
)

// AbsoluteURL resolves u against base. Invalid input returns u unchanged.
func AbsoluteURL(u, base string) string {
	ref, err := url.Parse(u)
	if err != nil {
		return u
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return u
	}
	return b.ResolveReference(ref).String()
}

// DateToRFC3339 formats t for Atom <updated> elements.
func DateToRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DateToRFC822 formats t for RSS <pubDate> elements.
func DateToRFC822(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}

// NewestCollectionItemDate returns the latest page date in pages, or the
// zero time for an empty collection.
func NewestCollectionItemDate(pages []*sitegen.Page) time.Time {
	var newest time.Time
	for _, p := range pages {
		if p.Date.After(newest) {
			newest = p.Date
		}
	}
	return newest
}

// urlAttrs lists the attributes whose values are rewritten by
// HTMLToAbsoluteURLs.
var urlAttrs = map[string]bool{
	"href":   true,
	"src":    true,
	"poster": true,
}

// HTMLToAbsoluteURLs rewrites relative href and src attributes in an HTML
// fragment so they resolve against base. Feed readers have no page URL to
// resolve against.
func HTMLToAbsoluteURLs(fragment, base string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return fragment, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("feed: parse html: %w", err)
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		rewriteURLs(n, base)
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("feed: render html: %w", err)
		}
	}
	return buf.String(), nil
}

func rewriteURLs(n *html.Node, base string) {
	if n.Type == html.ElementNode {
		for i, a := range n.Attr {
			if a.Namespace == "" && urlAttrs[a.Key] && !strings.HasPrefix(a.Val, "#") {
				n.Attr[i].Val = AbsoluteURL(a.Val, base)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteURLs(c, base)
	}
}

// Plugin registers the feed filters and the feed and sitemap build hooks.
func Plugin(opts Options) sitegen.Plugin {
	return func(cfg *sitegen.Config) {
		cfg.AddFilter("absoluteUrl", absoluteURLFilter)
		cfg.AddFilter("dateToRfc3339", dateFilter(DateToRFC3339))
		cfg.AddFilter("dateToRfc822", dateFilter(DateToRFC822))
		cfg.AddFilter("getNewestCollectionItemDate", NewestCollectionItemDate)
		cfg.AddFilter("htmlToAbsoluteUrls", htmlToAbsoluteURLsFilter)
		cfg.AddBuildHook(Write(opts))
		if !opts.NoSitemap {
			cfg.AddBuildHook(Sitemap())
		}
	}
}

// Template adapters take the piped value last:
// {{ .page.url | absoluteUrl .metadata.url }}.

func absoluteURLFilter(base, u string) string {
	return AbsoluteURL(u, base)
}

func dateFilter(format func(time.Time) string) func(any) (string, error) {
	return func(v any) (string, error) {
		t, err := sitegen.ToTime(v)
		if err != nil {
			return "", err
		}
		return format(t), nil
	}
}

func htmlToAbsoluteURLsFilter(base string, content any) (template.HTML, error) {
	var s string
	switch c := content.(type) {
	case template.HTML:
		s = string(c)
	case string:
		s = c
	default:
		return "", fmt.Errorf("htmlToAbsoluteUrls: unsupported content %T", content)
	}
	out, err := HTMLToAbsoluteURLs(s, base)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}
