package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/eringen/sitegen"
	"github.com/eringen/sitegen/baseblog"
	"github.com/eringen/sitegen/markdown"
	"github.com/eringen/sitegen/scaffold"
)

const defaultCachePath = ".sitegen/build.db"

// newEngine applies the base blog configuration, then the project file,
// then environment overrides.
func newEngine(g *Globals, cli *CLI) (*sitegen.Engine, error) {
	cfg := &sitegen.Config{Logger: g.Logger}
	baseblog.Configure(cfg)
	if err := sitegen.LoadProjectFile(cli.Config, cfg); err != nil {
		return nil, err
	}
	cfg.Addr = sitegen.EnvOr("SITEGEN_ADDR", cfg.Addr)
	cfg.PathPrefix = sitegen.EnvOr("SITEGEN_PATH_PREFIX", cfg.PathPrefix)
	cfg.CachePath = sitegen.EnvOr("SITEGEN_CACHE", cfg.CachePath)
	return sitegen.New(cfg), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// BuildCmd writes the site once.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory (overrides the configured one)"`
	Incremental bool   `short:"i" help:"Skip rewriting output files whose content is unchanged"`
}

func (b *BuildCmd) Run(g *Globals, cli *CLI) error {
	engine, err := newEngine(g, cli)
	if err != nil {
		return err
	}
	defer engine.Close()

	cfg := engine.Config()
	if b.Output != "" {
		cfg.Dir.Output = b.Output
	}
	if !b.Incremental {
		cfg.CachePath = ""
	} else if cfg.CachePath == "" {
		cfg.CachePath = defaultCachePath
	}

	ctx, cancel := signalContext()
	defer cancel()
	_, err = engine.Build(ctx)
	return err
}

// ServeCmd runs the dev server.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (overrides the configured one)"`
}

func (s *ServeCmd) Run(g *Globals, cli *CLI) error {
	engine, err := newEngine(g, cli)
	if err != nil {
		return err
	}
	defer engine.Close()
	if s.Addr != "" {
		engine.Config().Addr = s.Addr
	}

	ctx, cancel := signalContext()
	defer cancel()
	return engine.Serve(ctx)
}

// WatchCmd rebuilds on changes until interrupted.
type WatchCmd struct{}

func (w *WatchCmd) Run(g *Globals, cli *CLI) error {
	engine, err := newEngine(g, cli)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return engine.Watch(ctx)
}

// InitCmd scaffolds a new blog.
type InitCmd struct {
	Dir    string `arg:"" help:"Directory to create"`
	Name   string `help:"Site title (defaults to the directory name)"`
	URL    string `help:"Public URL of the site" default:"https://example.com/"`
	Author string `help:"Author name" default:"Your Name Here"`
	Email  string `help:"Author email" default:"youremailaddress@example.com"`
}

func (i *InitCmd) Run(g *Globals) error {
	project := filepath.Base(filepath.Clean(i.Dir))
	name := i.Name
	if name == "" {
		name = scaffold.ToTitle(project)
	}
	created, err := scaffold.Write(i.Dir, scaffold.Data{
		ProjectName: project,
		SiteName:    name,
		URL:         i.URL,
		AuthorName:  i.Author,
		AuthorEmail: i.Email,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Creating new blog: %s\n\n", i.Dir)
	for _, p := range created {
		fmt.Printf("  created %s\n", filepath.Join(i.Dir, p))
	}
	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	fmt.Printf("  cd %s\n", i.Dir)
	fmt.Println("  sitegen serve")
	fmt.Println()
	fmt.Println("Edit _data/metadata.json to set the site title, URL and author.")
	return nil
}

// HighlightCSSCmd prints the chroma stylesheet matching highlighted code.
type HighlightCSSCmd struct {
	Style string `short:"s" help:"Chroma style name" default:"monokai"`
}

func (h *HighlightCSSCmd) Run() error {
	return markdown.StyleCSS(os.Stdout, h.Style)
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("sitegen %s\n", version)
	return nil
}
