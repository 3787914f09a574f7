package sitegen

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const ignoreFile = ".sitegenignore"

var reDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)

// discover walks the input dir and returns the slash-separated relative
// paths of every content template.
func (e *Engine) discover() ([]string, error) {
	input := e.cfg.Dir.Input
	skip, err := e.skipSet()
	if err != nil {
		return nil, err
	}
	var files []string
	err = filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(input, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || name == "node_modules" || skipped(skip, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(path.Ext(name), ".")
		if e.cfg.hasFormat(ext) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sitegen: discover templates: %w", err)
	}
	return files, nil
}

// skipSet lists input-relative paths that never hold content templates.
func (e *Engine) skipSet() ([]string, error) {
	input, err := filepath.Abs(e.cfg.Dir.Input)
	if err != nil {
		return nil, err
	}
	skip := []string{
		path.Clean(filepath.ToSlash(e.cfg.Dir.Includes)),
		path.Clean(filepath.ToSlash(e.cfg.Dir.Data)),
	}
	if out, err := filepath.Abs(e.cfg.Dir.Output); err == nil {
		if rel, err := filepath.Rel(input, out); err == nil && !strings.HasPrefix(rel, "..") {
			skip = append(skip, filepath.ToSlash(rel))
		}
	}
	for _, p := range e.cfg.PassthroughCopy {
		skip = append(skip, path.Clean(filepath.ToSlash(p)))
	}
	ignored, err := readIgnoreFile(filepath.Join(e.cfg.Dir.Input, ignoreFile))
	if err != nil {
		return nil, err
	}
	return append(skip, ignored...), nil
}

func readIgnoreFile(p string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, path.Clean(strings.TrimPrefix(line, "./")))
	}
	return out, sc.Err()
}

func skipped(skip []string, rel string) bool {
	for _, s := range skip {
		if rel == s || strings.HasPrefix(rel, s+"/") {
			return true
		}
	}
	return false
}

// loadPage reads one content template and resolves its data cascade.
// Permalinks are resolved later, once the data is final.
func (e *Engine) loadPage(rel string, global map[string]any, dc *dataCascade) (*Page, error) {
	full := filepath.Join(e.cfg.Dir.Input, filepath.FromSlash(rel))
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	fm, body, err := SplitFrontMatter(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	dirData, err := dc.forTemplate(rel)
	if err != nil {
		return nil, err
	}
	data := mergeData(mergeData(global, dirData, e.cfg.DataDeepMerge), fm, e.cfg.DataDeepMerge)

	ext := path.Ext(rel)
	base := strings.TrimSuffix(path.Base(rel), ext)
	p := &Page{
		InputPath:    rel,
		FileSlug:     reDatePrefix.ReplaceAllString(base, ""),
		FilePathStem: "/" + strings.TrimSuffix(rel, ext),
		Data:         data,
		format:       strings.TrimPrefix(ext, "."),
		body:         string(body),
	}
	if p.FileSlug == "index" && path.Dir(rel) != "." {
		p.FileSlug = path.Base(path.Dir(rel))
	}
	p.Date, err = pageDate(data["date"], base, info.ModTime())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	p.Tags = normalizeTags(data["tags"])
	p.layout, _ = data["layout"].(string)
	p.excluded, _ = data["eleventyExcludeFromCollections"].(bool)
	if pg, ok := data["pagination"]; ok {
		p.pagination, err = parsePagination(pg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
	}
	return p, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// pageDate resolves a page's date from front matter, a YYYY-MM-DD file
// name prefix, or the file's modification time, in that order.
func pageDate(v any, base string, modTime time.Time) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		if m := reDatePrefix.FindStringSubmatch(base); m != nil {
			return time.Parse("2006-01-02", m[1])
		}
		return modTime.UTC(), nil
	case time.Time:
		return d.UTC(), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(d)) {
		case "last modified", "created":
			return modTime.UTC(), nil
		}
		return parseDateString(d)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v", v)
	}
}

func parseDateString(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// defaultPermalink maps an input path to its pretty URL:
// posts/firstpost.md -> /posts/firstpost/, about/index.md -> /about/.
func defaultPermalink(rel string) string {
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	dir, base := path.Split(stem)
	if base == "index" {
		if dir == "" {
			return "/"
		}
		return "/" + dir
	}
	return "/" + stem + "/"
}

// outputFor maps a URL to a file in the output dir.
func (e *Engine) outputFor(u string) string {
	rel := strings.TrimPrefix(u, "/")
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}
	return filepath.Join(e.cfg.Dir.Output, filepath.FromSlash(rel))
}

// resolvePermalink applies the page's permalink front matter, which may be
// false (no output), a template string, or absent.
func (e *Engine) resolvePermalink(p *Page, r *renderer, data map[string]any) error {
	switch v := p.Data["permalink"].(type) {
	case nil:
		p.URL = defaultPermalink(p.InputPath)
	case bool:
		if v {
			p.URL = defaultPermalink(p.InputPath)
		} else {
			p.URL = ""
			p.OutputPath = ""
			return nil
		}
	case string:
		out, err := r.renderText(p.InputPath+"#permalink", v, data)
		if err != nil {
			return fmt.Errorf("%s: permalink: %w", p.InputPath, err)
		}
		out = strings.TrimSpace(out)
		if !strings.HasPrefix(out, "/") {
			out = "/" + out
		}
		p.URL = out
	default:
		return fmt.Errorf("%s: permalink must be a string or false", p.InputPath)
	}
	p.OutputPath = e.outputFor(p.URL)
	return nil
}
