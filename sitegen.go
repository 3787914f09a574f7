// Package sitegen is a small static-site generator for blogs.
// It discovers content templates, resolves front matter and directory
// data, builds collections, renders Go templates and Markdown through
// layouts, and writes the result into an output directory.
//
// The site itself is described by a Config: filters, collections,
// plugins and directory conventions are registered on it the same way a
// site's configuration file would wire them, and the Engine does the rest.
package sitegen

import (
	"fmt"
	"os"
	"sync"
)

// Engine builds and serves one site.
type Engine struct {
	cfg *Config

	buildMu sync.Mutex
	store   *Store
	status  buildStatus
}

// New creates an Engine for cfg. The Engine keeps cfg by reference, so
// filters registered by plugins observe later changes such as the path
// prefix.
func New(cfg *Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	cfg.setDefaults()
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

func (e *Engine) openStore() error {
	if e.cfg.CachePath == "" || e.store != nil {
		return nil
	}
	store, err := OpenStore(e.cfg.CachePath)
	if err != nil {
		return fmt.Errorf("sitegen: init build cache: %w", err)
	}
	e.store = store
	return nil
}

// Close cleans up resources. Call this when the engine is shutting down.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
