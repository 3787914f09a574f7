package sitegen

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"

	"github.com/eringen/sitegen/markdown"
)

// EngineGoTemplate names the Go template engine as a pre-processor for
// Markdown and HTML files. An empty engine name disables pre-processing.
const EngineGoTemplate = "gotmpl"

// Dirs holds the directory roles of a project. Includes and Data are
// relative to Input; Output is relative to the working directory.
type Dirs struct {
	Input    string `yaml:"input"`
	Includes string `yaml:"includes"`
	Data     string `yaml:"data"`
	Output   string `yaml:"output"`
}

// MarkdownRenderer converts Markdown source to HTML.
type MarkdownRenderer interface {
	Render(source []byte) (string, error)
}

// ServerHook runs once the dev server is configured and before it accepts
// requests. Returning an error aborts server start.
type ServerHook func(srv *echo.Echo, cfg *Config) error

// BuildHook runs after every successful page write pass.
type BuildHook func(ctx context.Context, b *BuildResult) error

// Plugin bundles filters, collections and hooks under one registration.
type Plugin func(cfg *Config)

// Config holds all configuration for a site. Plugins and filters are
// registered through its Add* methods, mirroring how the site's
// configuration file wires them up.
type Config struct {
	Dir             Dirs     // default input ".", includes "_includes", data "_data", output "_site"
	TemplateFormats []string // default md, html

	MarkdownTemplateEngine string // pre-processor for .md files
	HTMLTemplateEngine     string // pre-processor for .html files
	DataTemplateEngine     string // data files are never pre-processed when empty

	PathPrefix string // URL prefix for subdirectory deployments (default "/")
	Addr       string // dev server listen address (default ":8080")
	CachePath  string // SQLite build cache; empty disables incremental writes

	PassthroughCopy []string
	LayoutAliases   map[string]string
	DataDeepMerge   bool

	Filters     map[string]any
	Collections map[string]CollectionFunc
	Markdown    MarkdownRenderer
	Logger      *slog.Logger

	serverHooks []ServerHook
	buildHooks  []BuildHook
}

func (c *Config) setDefaults() {
	if c.Dir.Input == "" {
		c.Dir.Input = "."
	}
	if c.Dir.Includes == "" {
		c.Dir.Includes = "_includes"
	}
	if c.Dir.Data == "" {
		c.Dir.Data = "_data"
	}
	if c.Dir.Output == "" {
		c.Dir.Output = "_site"
	}
	if len(c.TemplateFormats) == 0 {
		c.TemplateFormats = []string{"md", "html"}
	}
	if c.PathPrefix == "" {
		c.PathPrefix = "/"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Markdown == nil {
		c.Markdown = markdown.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// AddFilter registers a template function under name.
func (c *Config) AddFilter(name string, fn any) {
	if c.Filters == nil {
		c.Filters = make(map[string]any)
	}
	c.Filters[name] = fn
}

// GetFilter returns a previously registered filter.
func (c *Config) GetFilter(name string) any {
	if fn, ok := c.Filters[name]; ok {
		return fn
	}
	return builtinFuncs(c)[name]
}

// AddCollection registers a custom collection.
func (c *Config) AddCollection(name string, fn CollectionFunc) {
	if c.Collections == nil {
		c.Collections = make(map[string]CollectionFunc)
	}
	c.Collections[name] = fn
}

// AddPassthroughCopy copies path (relative to the input dir) verbatim
// into the output dir.
func (c *Config) AddPassthroughCopy(path string) {
	c.PassthroughCopy = append(c.PassthroughCopy, path)
}

// AddLayoutAlias lets front matter say `layout: alias` instead of a path.
func (c *Config) AddLayoutAlias(alias, path string) {
	if c.LayoutAliases == nil {
		c.LayoutAliases = make(map[string]string)
	}
	c.LayoutAliases[alias] = path
}

// AddPlugin applies p to c.
func (c *Config) AddPlugin(p Plugin) {
	p(c)
}

// AddServerHook registers a dev server hook.
func (c *Config) AddServerHook(h ServerHook) {
	c.serverHooks = append(c.serverHooks, h)
}

// AddBuildHook registers a hook that runs after each build.
func (c *Config) AddBuildHook(h BuildHook) {
	c.buildHooks = append(c.buildHooks, h)
}

// SetLibrary replaces the renderer used for a template format. Only "md"
// is configurable.
func (c *Config) SetLibrary(format string, r MarkdownRenderer) {
	if format == "md" {
		c.Markdown = r
	}
}

func (c *Config) hasFormat(ext string) bool {
	for _, f := range c.TemplateFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// projectFile is the optional sitegen.yaml overriding programmatic config.
type projectFile struct {
	Dir             Dirs     `yaml:"dir"`
	TemplateFormats []string `yaml:"templateFormats"`
	PathPrefix      string   `yaml:"pathPrefix"`
	Addr            string   `yaml:"addr"`
	CachePath       string   `yaml:"cache"`
	PassthroughCopy []string `yaml:"passthroughCopy"`
}

// LoadProjectFile applies the settings in path to cfg. A missing file is
// not an error.
func LoadProjectFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("sitegen: read %s: %w", path, err)
	}
	var pf projectFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("sitegen: parse %s: %w", path, err)
	}
	if pf.Dir.Input != "" {
		cfg.Dir.Input = pf.Dir.Input
	}
	if pf.Dir.Includes != "" {
		cfg.Dir.Includes = pf.Dir.Includes
	}
	if pf.Dir.Data != "" {
		cfg.Dir.Data = pf.Dir.Data
	}
	if pf.Dir.Output != "" {
		cfg.Dir.Output = pf.Dir.Output
	}
	if len(pf.TemplateFormats) > 0 {
		cfg.TemplateFormats = pf.TemplateFormats
	}
	if pf.PathPrefix != "" {
		cfg.PathPrefix = pf.PathPrefix
	}
	if pf.Addr != "" {
		cfg.Addr = pf.Addr
	}
	if pf.CachePath != "" {
		cfg.CachePath = pf.CachePath
	}
	cfg.PassthroughCopy = append(cfg.PassthroughCopy, pf.PassthroughCopy...)
	return nil
}

// Option configures additional Engine behavior.
type Option func(*Engine)

// WithLogger sets the structured logger used for build output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.cfg.Logger = l
	}
}

// WithFilter registers a template function.
func WithFilter(name string, fn any) Option {
	return func(e *Engine) {
		e.cfg.AddFilter(name, fn)
	}
}

// WithCollection registers a custom collection.
func WithCollection(name string, fn CollectionFunc) Option {
	return func(e *Engine) {
		e.cfg.AddCollection(name, fn)
	}
}

// WithPlugin applies a plugin to the engine's config.
func WithPlugin(p Plugin) Option {
	return func(e *Engine) {
		e.cfg.AddPlugin(p)
	}
}

// WithPassthroughCopy adds a passthrough path.
func WithPassthroughCopy(path string) Option {
	return func(e *Engine) {
		e.cfg.AddPassthroughCopy(path)
	}
}

// WithLayoutAlias adds a layout alias.
func WithLayoutAlias(alias, path string) Option {
	return func(e *Engine) {
		e.cfg.AddLayoutAlias(alias, path)
	}
}

// WithServerHook adds a dev server hook.
func WithServerHook(h ServerHook) Option {
	return func(e *Engine) {
		e.cfg.AddServerHook(h)
	}
}

// WithBuildHook adds a build hook.
func WithBuildHook(h BuildHook) Option {
	return func(e *Engine) {
		e.cfg.AddBuildHook(h)
	}
}

// WithBuildCache enables incremental writes backed by a SQLite file.
func WithBuildCache(path string) Option {
	return func(e *Engine) {
		e.cfg.CachePath = path
	}
}
