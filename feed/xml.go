package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/eringen/sitegen"
)

// Feed formats.
const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
)

// Options controls the feed written by Write.
type Options struct {
	Format     string // FormatAtom (default) or FormatRSS
	Collection string // default "posts"
	Path       string // output path; default metadata.feed.path, then "feed/feed.xml"
	Limit      int    // newest entries to include; 0 includes all
	NoSitemap  bool   // Plugin skips the sitemap hook
}

func (o *Options) setDefaults(b *sitegen.BuildResult) {
	if o.Format == "" {
		o.Format = FormatAtom
	}
	if o.Collection == "" {
		o.Collection = "posts"
	}
	if o.Path == "" {
		o.Path = b.MetadataString("metadata", "feed", "path")
	}
	if o.Path == "" {
		o.Path = "feed/feed.xml"
	}
	o.Path = strings.TrimPrefix(o.Path, "/")
}

type atomFeed struct {
	XMLName  xml.Name    `xml:"feed"`
	XMLNS    string      `xml:"xmlns,attr"`
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle,omitempty"`
	Links    []atomLink  `xml:"link"`
	Updated  string      `xml:"updated"`
	ID       string      `xml:"id"`
	Author   *atomAuthor `xml:"author,omitempty"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomAuthor struct {
	Name  string `xml:"name"`
	Email string `xml:"email,omitempty"`
}

type atomEntry struct {
	Title   string      `xml:"title"`
	Link    atomLink    `xml:"link"`
	Updated string      `xml:"updated"`
	ID      string      `xml:"id"`
	Content atomContent `xml:"content"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// feedEntry is one collection page with its URLs resolved.
type feedEntry struct {
	page    *sitegen.Page
	url     string
	content string
}

// Write returns a build hook that writes the site feed from a collection,
// newest first. Site details come from the "metadata" global data file.
// Sites without metadata.url get no feed.
func Write(opts Options) sitegen.BuildHook {
	return func(ctx context.Context, b *sitegen.BuildResult) error {
		o := opts
		o.setDefaults(b)
		base := b.MetadataString("metadata", "url")
		if base == "" {
			b.Config.Logger.Warn("feed skipped: metadata.url is not set", "path", o.Path)
			return nil
		}

		pages := b.Collections.Pages(o.Collection)
		entries := make([]feedEntry, 0, len(pages))
		for i := len(pages) - 1; i >= 0; i-- {
			p := pages[i]
			if p.URL == "" {
				continue
			}
			if o.Limit > 0 && len(entries) == o.Limit {
				break
			}
			abs := AbsoluteURL(sitegen.PrefixURL(b.Config.PathPrefix, p.URL), base)
			content, err := HTMLToAbsoluteURLs(string(p.TemplateContent), abs)
			if err != nil {
				return fmt.Errorf("%s: %w", p.InputPath, err)
			}
			entries = append(entries, feedEntry{page: p, url: abs, content: content})
		}

		var doc any
		switch o.Format {
		case FormatAtom:
			doc = atomDocument(b, o, base, pages, entries)
		case FormatRSS:
			doc = rssDocument(b, base, entries)
		default:
			return fmt.Errorf("feed: unknown format %q", o.Format)
		}
		out, err := encodeXML(doc)
		if err != nil {
			return err
		}
		return b.WriteFile(o.Path, out)
	}
}

func atomDocument(b *sitegen.BuildResult, o Options, base string, pages []*sitegen.Page, entries []feedEntry) atomFeed {
	self := AbsoluteURL(sitegen.PrefixURL(b.Config.PathPrefix, "/"+o.Path), base)
	id := b.MetadataString("metadata", "feed", "id")
	if id == "" {
		id = base
	}
	doc := atomFeed{
		XMLNS:    "http://www.w3.org/2005/Atom",
		Title:    b.MetadataString("metadata", "title"),
		Subtitle: b.MetadataString("metadata", "subtitle"),
		Links:    []atomLink{{Href: self, Rel: "self"}, {Href: siteHome(b, base)}},
		Updated:  DateToRFC3339(NewestCollectionItemDate(pages)),
		ID:       id,
	}
	if name := b.MetadataString("metadata", "author", "name"); name != "" {
		doc.Author = &atomAuthor{Name: name, Email: b.MetadataString("metadata", "author", "email")}
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, atomEntry{
			Title:   e.page.Title(),
			Link:    atomLink{Href: e.url},
			Updated: DateToRFC3339(e.page.Date),
			ID:      e.url,
			Content: atomContent{Type: "html", Body: e.content},
		})
	}
	return doc
}

// siteHome is the absolute URL of the site root under the path prefix.
func siteHome(b *sitegen.BuildResult, base string) string {
	return sitegen.BuildURL(base, strings.Trim(b.Config.PathPrefix, "/"))
}

func rssDocument(b *sitegen.BuildResult, base string, entries []feedEntry) rssXML {
	items := make([]rssItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, rssItem{
			Title:       e.page.Title(),
			Link:        e.url,
			Description: e.content,
			PubDate:     DateToRFC822(e.page.Date),
			GUID:        e.url,
		})
	}
	return rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       b.MetadataString("metadata", "title"),
			Link:        siteHome(b, base),
			Description: b.MetadataString("metadata", "subtitle"),
			Items:       items,
		},
	}
}

func encodeXML(doc any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("feed: encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
