// Package baseblog is the configuration of a starter blog: date and list
// filters, a tag list collection, passthrough copies, Markdown settings,
// the feed, highlighting and navigation plugins, and a dev server that
// answers unknown URLs with the site's own 404 page.
//
// A site applies it before running the engine:
//
//	cfg := &sitegen.Config{}
//	baseblog.Configure(cfg)
//	engine := sitegen.New(cfg)
package baseblog

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/eringen/sitegen"
	"github.com/eringen/sitegen/feed"
	"github.com/eringen/sitegen/markdown"
	"github.com/eringen/sitegen/navigation"
)

// HighlightStyle is the chroma style used for code blocks and the
// generated stylesheet.
const HighlightStyle = "monokai"

// HighlightCSSPath is where the highlighting stylesheet is written,
// relative to the output dir.
const HighlightCSSPath = "css/chroma.css"

// NotFoundPath is the built 404 page served by the dev server.
const NotFoundPath = "404.html"

// Configure applies the blog configuration to cfg.
func Configure(cfg *sitegen.Config) {
	cfg.AddPlugin(feed.Plugin(feed.Options{}))
	cfg.AddPlugin(HighlightPlugin(HighlightStyle))
	cfg.AddPlugin(navigation.Plugin)

	cfg.AddLayoutAlias("post", "layouts/post.html")

	cfg.AddFilter("readableDate", readableDateFilter)
	cfg.AddFilter("htmlDateString", htmlDateStringFilter)
	cfg.AddFilter("head", headFilter)
	cfg.AddFilter("min", minFilter)
	cfg.AddFilter("filterTagList", filterTagListFilter)

	cfg.AddCollection("tagList", TagList)

	cfg.AddPassthroughCopy("img")
	cfg.AddPassthroughCopy("css")

	md := markdown.New(
		markdown.WithUnsafeHTML(),
		markdown.WithHardWraps(),
		markdown.WithLinkify(),
		markdown.WithHighlighting(HighlightStyle),
		markdown.WithSlugger(sitegen.Slugify),
		markdown.WithHeadingAnchors(1, 4, "#", "direct-link"),
	)
	cfg.SetLibrary("md", md)
	cfg.AddFilter("markdown", markdownFilter(md))

	cfg.AddServerHook(NotFoundPage(NotFoundPath))

	cfg.TemplateFormats = []string{"md", "njk", "html", "liquid"}
	cfg.MarkdownTemplateEngine = sitegen.EngineGoTemplate
	cfg.HTMLTemplateEngine = sitegen.EngineGoTemplate
	cfg.DataTemplateEngine = ""
	cfg.PathPrefix = "/"
	cfg.Dir = sitegen.Dirs{
		Input:    ".",
		Includes: "_includes",
		Data:     "_data",
		Output:   "_site",
	}
	cfg.DataDeepMerge = true
}

// markdownFilter renders a string field such as a description through the
// site's Markdown settings: {{ .description | markdown }}.
func markdownFilter(md *markdown.Renderer) func(string) (template.HTML, error) {
	return func(content string) (template.HTML, error) {
		var b strings.Builder
		if err := markdown.Markdown(md, content).Render(context.Background(), &b); err != nil {
			return "", fmt.Errorf("markdown: %w", err)
		}
		return template.HTML(b.String()), nil
	}
}

// HighlightPlugin adds a `highlight` template function for code outside
// Markdown, {{ highlight "go" .snippet }}, and writes the matching
// stylesheet after every build.
func HighlightPlugin(style string) sitegen.Plugin {
	return func(cfg *sitegen.Config) {
		cfg.AddFilter("highlight", func(lang, source string) (template.HTML, error) {
			var b strings.Builder
			if err := markdown.Highlight(&b, source, lang); err != nil {
				return "", fmt.Errorf("highlight: %w", err)
			}
			return template.HTML(b.String()), nil
		})
		cfg.AddBuildHook(func(ctx context.Context, b *sitegen.BuildResult) error {
			var css strings.Builder
			if err := markdown.StyleCSS(&css, style); err != nil {
				return fmt.Errorf("highlight stylesheet: %w", err)
			}
			return b.WriteFile(HighlightCSSPath, []byte(css.String()))
		})
	}
}
