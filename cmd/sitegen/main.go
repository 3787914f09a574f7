// Command sitegen builds, serves and scaffolds blogs using the base blog
// configuration.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set at build time via ldflags.
var version = "dev"

// Globals is bound into every command's Run method.
type Globals struct {
	Logger *slog.Logger
}

// CLI is the command line of sitegen.
type CLI struct {
	Config  string `short:"c" help:"Project file overriding the base blog settings" default:"sitegen.yaml"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Build        BuildCmd        `cmd:"" help:"Build the site into the output directory"`
	Serve        ServeCmd        `cmd:"" help:"Build, serve and rebuild on changes"`
	Watch        WatchCmd        `cmd:"" help:"Rebuild on changes without serving"`
	Init         InitCmd         `cmd:"" help:"Create a new blog from the starter template"`
	HighlightCSS HighlightCSSCmd `cmd:"" name:"highlight-css" help:"Print the stylesheet for highlighted code"`
	Version      VersionCmd      `cmd:"" help:"Print the sitegen version"`

	globals Globals `kong:"-"`
}

// AfterApply sets up logging once flags are parsed.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	c.globals.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.globals.Logger)
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sitegen"),
		kong.Description("A static-site generator for blogs."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.globals, &cli)
	ctx.FatalIfErrorf(err)
}
