// Package markdown renders Markdown to HTML with goldmark: heading
// permalinks, optional chroma syntax highlighting, and a templ component
// wrapper for use from Go templates.
package markdown

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

type options struct {
	unsafe    bool
	hardWraps bool
	linkify   bool
	highlight string
	anchors   *anchorOptions
	slugger   func(string) string
}

type anchorOptions struct {
	minLevel int
	maxLevel int
	symbol   string
	class    string
}

// Option configures a Renderer.
type Option func(*options)

// WithUnsafeHTML passes raw HTML in the source through to the output.
func WithUnsafeHTML() Option {
	return func(o *options) { o.unsafe = true }
}

// WithHardWraps turns single newlines inside paragraphs into <br>.
func WithHardWraps() Option {
	return func(o *options) { o.hardWraps = true }
}

// WithLinkify turns bare URLs into links.
func WithLinkify() Option {
	return func(o *options) { o.linkify = true }
}

// WithHighlighting highlights fenced code blocks with chroma, emitting CSS
// classes rather than inline styles. Pair it with StyleCSS.
func WithHighlighting(style string) Option {
	return func(o *options) { o.highlight = style }
}

// WithSlugger sets the function used to derive heading ids.
func WithSlugger(fn func(string) string) Option {
	return func(o *options) { o.slugger = fn }
}

// WithHeadingAnchors gives headings from minLevel to maxLevel an id and
// appends an aria-hidden permalink after the heading text.
func WithHeadingAnchors(minLevel, maxLevel int, symbol, class string) Option {
	return func(o *options) {
		o.anchors = &anchorOptions{minLevel: minLevel, maxLevel: maxLevel, symbol: symbol, class: class}
	}
}

// Renderer converts Markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New builds a Renderer. Without options it renders plain CommonMark
// with GFM tables and strikethrough, and escapes raw HTML.
func New(opts ...Option) *Renderer {
	o := &options{slugger: defaultSlug}
	for _, opt := range opts {
		opt(o)
	}

	exts := []goldmark.Extender{extension.Table, extension.Strikethrough}
	if o.linkify {
		exts = append(exts, extension.Linkify)
	}
	if o.highlight != "" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(o.highlight),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}
	if o.anchors != nil {
		exts = append(exts, &headingAnchors{opts: *o.anchors, slug: o.slugger})
	}

	var rendererOpts []renderer.Option
	if o.unsafe {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	if o.hardWraps {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}

	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)}
}

// Render converts source to HTML.
func (r *Renderer) Render(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(r *Renderer, content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := r.Render([]byte(content))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

// StyleCSS writes the stylesheet for a chroma style, matching the classes
// emitted by WithHighlighting. Unknown styles fall back to chroma's default.
func StyleCSS(w io.Writer, style string) error {
	return chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(w, styles.Get(style))
}

// Highlight writes source as highlighted HTML using the classes StyleCSS
// styles. Unknown languages are emitted as plain text.
func Highlight(w io.Writer, source, lang string) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err != nil {
		return err
	}
	return chromahtml.New(chromahtml.WithClasses(true)).Format(w, styles.Fallback, it)
}

func defaultSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// headingAnchors is a goldmark extension assigning unique heading ids and
// rendering a permalink after the heading text.
type headingAnchors struct {
	opts anchorOptions
	slug func(string) string
}

func (h *headingAnchors) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&headingIDTransformer{opts: h.opts, slug: h.slug}, 999),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&headingRenderer{opts: h.opts}, 100),
	))
}

type headingIDTransformer struct {
	opts anchorOptions
	slug func(string) string
}

func (t *headingIDTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	used := map[string]bool{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Level < t.opts.minLevel || heading.Level > t.opts.maxLevel {
			return ast.WalkSkipChildren, nil
		}
		id := t.slug(nodeText(heading, source))
		if id == "" {
			id = "section"
		}
		id = uniqueSlug(id, used)
		heading.SetAttributeString("id", []byte(id))
		return ast.WalkSkipChildren, nil
	})
}

// uniqueSlug returns slug, or slug suffixed with the first free -N, and
// marks the result as used.
func uniqueSlug(slug string, used map[string]bool) string {
	candidate := slug
	for n := 1; used[candidate]; n++ {
		candidate = slug + "-" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

// nodeText concatenates the text content below n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}

type headingRenderer struct {
	opts anchorOptions
}

func (r *headingRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, r.renderHeading)
}

func (r *headingRenderer) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	level := strconv.Itoa(n.Level)
	id, anchored := r.anchorID(n)
	if entering {
		_, _ = w.WriteString("<h" + level)
		if n.Attributes() != nil {
			html.RenderAttributes(w, n, html.HeadingAttributeFilter)
		}
		if anchored {
			_, _ = w.WriteString(` tabindex="-1"`)
		}
		_ = w.WriteByte('>')
		return ast.WalkContinue, nil
	}
	if anchored {
		_, _ = w.WriteString(` <a class="` + r.opts.class + `" href="#`)
		_, _ = w.Write(util.EscapeHTML(id))
		_, _ = w.WriteString(`" aria-hidden="true">` + r.opts.symbol + `</a>`)
	}
	_, _ = w.WriteString("</h" + level + ">\n")
	return ast.WalkContinue, nil
}

func (r *headingRenderer) anchorID(n *ast.Heading) ([]byte, bool) {
	if n.Level < r.opts.minLevel || n.Level > r.opts.maxLevel {
		return nil, false
	}
	v, ok := n.AttributeString("id")
	if !ok {
		return nil, false
	}
	id, ok := v.([]byte)
	return id, ok
}
