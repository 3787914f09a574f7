package sitegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// ErrUnknownLayout is returned when front matter names a layout that does
// not exist in the includes dir.
var ErrUnknownLayout = errors.New("unknown layout")

const maxLayoutDepth = 16

type layoutFile struct {
	name   string
	data   map[string]any
	parent string
}

// renderer owns the parsed includes for one build. Every render clones
// the base sets, so includes are parsed once and pages can call
// {{ template "partial.html" . }}.
type renderer struct {
	cfg     *Config
	html    *htmltemplate.Template
	text    *texttemplate.Template
	layouts map[string]*layoutFile
}

func newRenderer(cfg *Config) (*renderer, error) {
	funcs := builtinFuncs(cfg)
	for name, fn := range cfg.Filters {
		funcs[name] = fn
	}
	r := &renderer{
		cfg:     cfg,
		html:    htmltemplate.New("").Funcs(funcs),
		text:    texttemplate.New("").Funcs(funcs),
		layouts: map[string]*layoutFile{},
	}

	dir := filepath.Join(cfg.Dir.Input, cfg.Dir.Includes)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		fm, body, err := SplitFrontMatter(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, err := r.html.New(name).Parse(string(body)); err != nil {
			return fmt.Errorf("parse include %s: %w", name, err)
		}
		if _, err := r.text.New(name).Parse(string(body)); err != nil {
			return fmt.Errorf("parse include %s: %w", name, err)
		}
		lf := &layoutFile{name: name, data: fm}
		lf.parent, _ = fm["layout"].(string)
		delete(lf.data, "layout")
		r.layouts[name] = lf
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sitegen: load includes: %w", err)
	}
	return r, nil
}

// pageData is the data a page's templates see: its cascade plus page,
// collections and pagination bindings.
func (r *renderer) pageData(p *Page, cols Collections) map[string]any {
	data := make(map[string]any, len(p.Data)+len(p.extra)+2)
	for k, v := range p.Data {
		data[k] = v
	}
	for k, v := range p.extra {
		data[k] = v
	}
	data["page"] = p
	data["collections"] = cols
	return data
}

func (r *renderer) renderText(name, src string, data map[string]any) (string, error) {
	t, err := r.text.Clone()
	if err != nil {
		return "", err
	}
	tmpl, err := t.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *renderer) renderHTML(name, src string, data map[string]any) (string, error) {
	t, err := r.html.Clone()
	if err != nil {
		return "", err
	}
	tmpl, err := t.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderContent renders a page body without layouts: the configured
// template engine first, then Markdown for .md files.
func (r *renderer) renderContent(p *Page, data map[string]any) (string, error) {
	switch p.format {
	case "md":
		src := p.body
		if r.cfg.MarkdownTemplateEngine == EngineGoTemplate {
			out, err := r.renderText(p.InputPath, src, data)
			if err != nil {
				return "", err
			}
			src = out
		}
		return r.cfg.Markdown.Render([]byte(src))
	case "html":
		if r.cfg.HTMLTemplateEngine != EngineGoTemplate {
			return p.body, nil
		}
	}
	return r.renderHTML(p.InputPath, p.body, data)
}

func (r *renderer) resolveLayout(name string) (*layoutFile, error) {
	if alias, ok := r.cfg.LayoutAliases[name]; ok {
		name = alias
	}
	if lf, ok := r.layouts[name]; ok {
		return lf, nil
	}
	for _, f := range r.cfg.TemplateFormats {
		if lf, ok := r.layouts[name+"."+f]; ok {
			return lf, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownLayout, name)
}

// applyLayouts wraps content in the page's layout chain. Layout front
// matter sits below page data in the cascade, and a child layout's data
// wins over its parent's.
func (r *renderer) applyLayouts(p *Page, data map[string]any) (string, error) {
	content := string(p.TemplateContent)
	name := p.layout
	seen := map[string]bool{}
	for depth := 0; name != ""; depth++ {
		lf, err := r.resolveLayout(name)
		if err != nil {
			return "", err
		}
		if seen[lf.name] || depth >= maxLayoutDepth {
			return "", fmt.Errorf("layout cycle through %q", lf.name)
		}
		seen[lf.name] = true

		data = mergeData(lf.data, data, false)
		data["content"] = htmltemplate.HTML(content)
		t, err := r.html.Clone()
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, lf.name, data); err != nil {
			return "", err
		}
		content = buf.String()
		name = lf.parent
	}
	return content, nil
}

// pageComponent renders the final output of a page.
func (r *renderer) pageComponent(p *Page, data map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := r.applyLayouts(p, data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

// buildErrorPage is shown by the dev server while the last build is broken.
func buildErrorPage(err error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, werr := io.WriteString(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>Build failed</title></head>"+
			"<body><h1>Build failed</h1><pre>"+html.EscapeString(err.Error())+"</pre></body></html>")
		return werr
	})
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}
