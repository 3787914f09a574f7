package baseblog

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitegen"
)

// ErrNotFoundPageMissing is returned at server start when the built 404
// page does not exist.
var ErrNotFoundPageMissing = errors.New("404 page missing")

// NotFoundContentType is sent with the 404 page.
const NotFoundContentType = "text/html; charset=UTF-8"

// NotFoundPage returns a server hook that answers every unmatched request
// with the built page at name (relative to the output dir) and status 404.
// The file must exist when the server starts. It is read again on every
// request so rebuilds show up without a restart.
func NotFoundPage(name string) sitegen.ServerHook {
	return func(srv *echo.Echo, cfg *sitegen.Config) error {
		page := filepath.Join(cfg.Dir.Output, filepath.FromSlash(name))
		if _, err := os.Stat(page); err != nil {
			return fmt.Errorf("%w: expected %s to exist; create a 404 template (for example 404.md with `permalink: %s`)",
				ErrNotFoundPageMissing, page, name)
		}

		next := srv.HTTPErrorHandler
		if next == nil {
			next = srv.DefaultHTTPErrorHandler
		}
		srv.HTTPErrorHandler = func(err error, c echo.Context) {
			if c.Response().Committed || !unmatched(err) {
				next(err, c)
				return
			}
			body, rerr := os.ReadFile(page)
			if rerr != nil {
				c.Logger().Errorf("read 404 page: %v", rerr)
				next(err, c)
				return
			}
			c.Response().Header().Set(echo.HeaderContentType, NotFoundContentType)
			c.Response().WriteHeader(http.StatusNotFound)
			_, _ = c.Response().Write(body)
		}
		return nil
	}
}

// unmatched reports whether err means no route or file served the
// request. Static files are only routed for GET, so other methods show up
// as 405.
func unmatched(err error) bool {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return false
	}
	return he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed
}
