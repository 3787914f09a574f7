package sitegen

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// buildStatus tracks the outcome of the most recent build so the dev
// server can show the error instead of stale pages.
type buildStatus struct {
	mu      sync.RWMutex
	lastErr error
}

func (bs *buildStatus) setError(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastErr = err
}

func (bs *buildStatus) setSuccess() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastErr = nil
}

func (bs *buildStatus) get() error {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastErr
}

// Handler returns the dev server's echo instance with middleware, static
// output serving and every server hook applied. A hook error is returned
// before anything is served.
func (e *Engine) Handler() (*echo.Echo, error) {
	srv := echo.New()
	srv.HideBanner = true
	srv.HidePort = true

	srv.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	srv.Use(middleware.Recover())
	srv.Use(noStoreMiddleware)
	srv.Use(e.buildErrorMiddleware)

	prefix := "/" + strings.Trim(e.cfg.PathPrefix, "/")
	if prefix != "/" {
		srv.GET("/", func(c echo.Context) error {
			return c.Redirect(http.StatusFound, prefix+"/")
		})
	}
	srv.Static(prefix, e.cfg.Dir.Output)

	for _, hook := range e.cfg.serverHooks {
		if err := hook(srv, e.cfg); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

// noStoreMiddleware keeps browsers from caching pages that the watcher
// may rewrite at any moment.
func noStoreMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

func (e *Engine) buildErrorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := e.status.get(); err != nil {
			return RenderStatus(c, http.StatusInternalServerError, buildErrorPage(err))
		}
		return next(c)
	}
}

// Serve builds the site, then serves the output dir and rebuilds on
// changes until ctx is cancelled.
func (e *Engine) Serve(ctx context.Context) error {
	if _, err := e.Build(ctx); err != nil {
		return err
	}
	srv, err := e.Handler()
	if err != nil {
		return err
	}

	go e.serveWatch(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.cfg.Logger.Info("dev server listening", "addr", e.cfg.Addr, "output", e.cfg.Dir.Output)
	if err := srv.Start(e.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// serveWatch runs the watcher beside the dev server and logs the error
// that stops it.
func (e *Engine) serveWatch(ctx context.Context) {
	if err := e.watch(ctx, false); err != nil {
		e.cfg.Logger.Error("file watcher stopped", "error", err)
	}
}
