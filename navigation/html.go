package navigation

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/eringen/sitegen"
)

// HTMLOptions controls ToHTML output.
type HTMLOptions struct {
	ListElement         string // default "ul"
	ListItemElement     string // default "li"
	ListClass           string
	ListItemClass       string
	AnchorClass         string
	ActiveKey           string
	ActiveListItemClass string
	ActiveAnchorClass   string
	ShowExcerpt         bool
	PathPrefix          string
}

// ToHTML renders entries as nested lists of links.
func ToHTML(entries []*Entry, opts HTMLOptions) template.HTML {
	if opts.ListElement == "" {
		opts.ListElement = "ul"
	}
	if opts.ListItemElement == "" {
		opts.ListItemElement = "li"
	}
	var b strings.Builder
	writeList(&b, entries, opts)
	return template.HTML(b.String())
}

func writeList(b *strings.Builder, entries []*Entry, opts HTMLOptions) {
	if len(entries) == 0 {
		return
	}
	b.WriteString("<" + opts.ListElement + classAttr(opts.ListClass) + ">")
	for _, e := range entries {
		active := opts.ActiveKey != "" && e.Key == opts.ActiveKey
		itemClass, anchorClass := opts.ListItemClass, opts.AnchorClass
		if active {
			itemClass = joinClasses(itemClass, opts.ActiveListItemClass)
			anchorClass = joinClasses(anchorClass, opts.ActiveAnchorClass)
		}
		b.WriteString("<" + opts.ListItemElement + classAttr(itemClass) + ">")
		href := sitegen.PrefixURL(opts.PathPrefix, e.URL)
		b.WriteString(`<a href="` + html.EscapeString(href) + `"` + classAttr(anchorClass) + ">")
		b.WriteString(html.EscapeString(e.Title))
		b.WriteString("</a>")
		if opts.ShowExcerpt && e.Excerpt != "" {
			b.WriteString(": " + html.EscapeString(e.Excerpt))
		}
		writeList(b, e.Children, opts)
		b.WriteString("</" + opts.ListItemElement + ">")
	}
	b.WriteString("</" + opts.ListElement + ">")
}

func classAttr(class string) string {
	if class == "" {
		return ""
	}
	return ` class="` + html.EscapeString(class) + `"`
}

func joinClasses(a, b string) string {
	return strings.TrimSpace(a + " " + b)
}

// Plugin registers the navigation filters. Their piped argument comes last:
//
//	{{ .collections.all | eleventyNavigation | eleventyNavigationToHtml }}
//	{{ .collections.all | eleventyNavigationBreadcrumb "About" }}
func Plugin(cfg *sitegen.Config) {
	cfg.AddFilter("eleventyNavigation", findFilter)
	cfg.AddFilter("eleventyNavigationBreadcrumb", breadcrumbFilter)
	cfg.AddFilter("eleventyNavigationToHtml", func(args ...any) (template.HTML, error) {
		return toHTMLFilter(cfg.PathPrefix, args...)
	})
}

// findFilter accepts an optional root key before the pages.
func findFilter(args ...any) ([]*Entry, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("eleventyNavigation: missing pages")
	}
	pages, err := pagesArg(args[len(args)-1])
	if err != nil {
		return nil, fmt.Errorf("eleventyNavigation: %w", err)
	}
	root := ""
	if len(args) > 1 {
		root, _ = args[0].(string)
	}
	return Find(pages, root), nil
}

// breadcrumbFilter takes the key, an optional includeSelf flag, then the
// pages.
func breadcrumbFilter(args ...any) ([]*Entry, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("eleventyNavigationBreadcrumb: want key and pages")
	}
	key, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("eleventyNavigationBreadcrumb: key must be a string, got %T", args[0])
	}
	includeSelf := false
	if len(args) > 2 {
		includeSelf, _ = args[1].(bool)
	}
	pages, err := pagesArg(args[len(args)-1])
	if err != nil {
		return nil, fmt.Errorf("eleventyNavigationBreadcrumb: %w", err)
	}
	return Breadcrumb(pages, key, includeSelf)
}

// toHTMLFilter takes an optional options map (built with dict) before the
// entries.
func toHTMLFilter(prefix string, args ...any) (template.HTML, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("eleventyNavigationToHtml: missing entries")
	}
	entries, ok := args[len(args)-1].([]*Entry)
	if !ok {
		return "", fmt.Errorf("eleventyNavigationToHtml: want navigation entries, got %T", args[len(args)-1])
	}
	opts := HTMLOptions{PathPrefix: prefix}
	if len(args) > 1 {
		m, ok := args[0].(map[string]any)
		if !ok {
			return "", fmt.Errorf("eleventyNavigationToHtml: options must be a dict, got %T", args[0])
		}
		opts.ListElement, _ = m["listElement"].(string)
		opts.ListItemElement, _ = m["listItemElement"].(string)
		opts.ListClass, _ = m["listClass"].(string)
		opts.ListItemClass, _ = m["listItemClass"].(string)
		opts.AnchorClass, _ = m["anchorClass"].(string)
		opts.ActiveKey, _ = m["activeKey"].(string)
		opts.ActiveListItemClass, _ = m["activeListItemClass"].(string)
		opts.ActiveAnchorClass, _ = m["activeAnchorClass"].(string)
		opts.ShowExcerpt, _ = m["showExcerpt"].(bool)
	}
	return ToHTML(entries, opts), nil
}

func pagesArg(v any) ([]*sitegen.Page, error) {
	switch p := v.(type) {
	case []*sitegen.Page:
		return p, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("want a page collection, got %T", v)
	}
}
