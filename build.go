package sitegen

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"time"
)

// Build renders the whole site into the output dir.
func (e *Engine) Build(ctx context.Context) (*BuildResult, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	res, err := e.build(ctx)
	if err != nil {
		e.status.setError(err)
		return nil, err
	}
	e.status.setSuccess()
	return res, nil
}

func (e *Engine) build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	cfg := e.cfg
	log := cfg.Logger

	if err := e.openStore(); err != nil {
		return nil, err
	}

	global, err := loadGlobalData(filepath.Join(cfg.Dir.Input, cfg.Dir.Data))
	if err != nil {
		return nil, fmt.Errorf("sitegen: load data: %w", err)
	}
	files, err := e.discover()
	if err != nil {
		return nil, err
	}
	r, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}

	dc := newDataCascade(cfg.Dir.Input, cfg.DataDeepMerge)
	var templates []*Page
	for _, rel := range files {
		p, err := e.loadPage(rel, global, dc)
		if err != nil {
			return nil, fmt.Errorf("sitegen: load %s: %w", rel, err)
		}
		templates = append(templates, p)
	}

	// Permalinks only see template data; collections are not built yet.
	var pages, paginated []*Page
	for _, p := range templates {
		if p.pagination != nil {
			paginated = append(paginated, p)
			continue
		}
		if err := e.resolvePermalink(p, r, r.pageData(p, nil)); err != nil {
			return nil, fmt.Errorf("sitegen: %w", err)
		}
		pages = append(pages, p)
	}

	cols, err := e.buildCollections(pages)
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := r.renderContent(p, r.pageData(p, cols))
		if err != nil {
			return nil, fmt.Errorf("sitegen: render %s: %w", p.InputPath, err)
		}
		p.TemplateContent = htmltemplate.HTML(out)
	}

	for _, tmpl := range paginated {
		expanded, err := e.paginate(tmpl, r, cols)
		if err != nil {
			return nil, fmt.Errorf("sitegen: paginate: %w", err)
		}
		for _, p := range expanded {
			out, err := r.renderContent(p, r.pageData(p, cols))
			if err != nil {
				return nil, fmt.Errorf("sitegen: render %s: %w", p.InputPath, err)
			}
			p.TemplateContent = htmltemplate.HTML(out)
		}
		pages = append(pages, expanded...)
	}

	res := &BuildResult{
		Config:      cfg,
		Pages:       pages,
		Collections: cols,
		Data:        global,
	}
	kept := map[string]struct{}{}
	res.write = func(rel string, data []byte) (bool, error) {
		kept[rel] = struct{}{}
		return e.writeOutput(rel, data)
	}

	owners := map[string]string{}
	for _, p := range pages {
		if p.OutputPath == "" {
			continue
		}
		if prev, ok := owners[p.OutputPath]; ok {
			return nil, fmt.Errorf("sitegen: output conflict: %s and %s both write %s", prev, p.InputPath, p.OutputPath)
		}
		owners[p.OutputPath] = p.InputPath

		var buf bytes.Buffer
		if err := r.pageComponent(p, r.pageData(p, cols)).Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("sitegen: layout %s: %w", p.InputPath, err)
		}
		rel, err := filepath.Rel(cfg.Dir.Output, p.OutputPath)
		if err != nil {
			return nil, err
		}
		if err := res.WriteFile(filepath.ToSlash(rel), buf.Bytes()); err != nil {
			return nil, fmt.Errorf("sitegen: write %s: %w", p.OutputPath, err)
		}
	}

	copied, err := e.copyPassthrough()
	if err != nil {
		return nil, err
	}
	res.Copied = copied

	for _, hook := range cfg.buildHooks {
		if err := hook(ctx, res); err != nil {
			return nil, fmt.Errorf("sitegen: build hook: %w", err)
		}
	}

	if e.store != nil {
		if n, err := e.store.Prune(kept); err != nil {
			log.Warn("prune build cache", "error", err)
		} else if n > 0 {
			log.Debug("pruned build cache", "entries", n)
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("build complete",
		"pages", len(pages),
		"written", res.Written,
		"skipped", res.Skipped,
		"copied", res.Copied,
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// writeOutput writes one output file. With a build cache, files whose
// content hash is unchanged and still on disk are left alone.
func (e *Engine) writeOutput(rel string, data []byte) (bool, error) {
	dst := filepath.Join(e.cfg.Dir.Output, filepath.FromSlash(rel))
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if e.store != nil {
		same, err := e.store.Unchanged(rel, hash)
		if err != nil {
			return false, err
		}
		if same {
			if _, err := os.Stat(dst); err == nil {
				return false, nil
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return false, err
	}
	if e.store != nil {
		if err := e.store.Record(rel, hash); err != nil {
			return true, err
		}
	}
	return true, nil
}
