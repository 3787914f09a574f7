package sitegen

import (
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Page is one rendered output of a content template. Paginated templates
// produce one Page per chunk.
type Page struct {
	InputPath    string    // slash-separated, relative to the input dir
	FileSlug     string    // base name without extension or date prefix
	FilePathStem string    // "/posts/firstpost"
	URL          string    // site-relative, empty when permalink is false
	OutputPath   string    // filesystem path, empty when not written
	Date         time.Time // always UTC
	Tags         []string
	Data         map[string]any

	TemplateContent template.HTML

	format     string
	body       string
	layout     string
	excluded   bool
	pagination *paginationSpec
	extra      map[string]any
}

// Title returns the page's front matter title, if any.
func (p *Page) Title() string {
	s, _ := p.Data["title"].(string)
	return s
}

// HasTag reports whether the page carries tag.
func (p *Page) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Collections maps collection names to their values. Tag collections and
// "all" hold []*Page; custom collections hold whatever their func returns.
type Collections map[string]any

// Pages returns the named collection as a page list, or nil when it is
// missing or not a page collection.
func (c Collections) Pages(name string) []*Page {
	pages, _ := c[name].([]*Page)
	return pages
}

// CollectionAPI is handed to custom collection funcs.
type CollectionAPI struct {
	all []*Page
}

// NewCollectionAPI returns the API over pages, which must already be in
// collection order.
func NewCollectionAPI(pages []*Page) CollectionAPI {
	return CollectionAPI{all: pages}
}

// GetAll returns every page eligible for collections, in collection order.
func (api CollectionAPI) GetAll() []*Page {
	out := make([]*Page, len(api.all))
	copy(out, api.all)
	return out
}

// GetAllSorted is GetAll; pages are already sorted by date then input path.
func (api CollectionAPI) GetAllSorted() []*Page {
	return api.GetAll()
}

// GetFilteredByTag returns pages carrying tag.
func (api CollectionAPI) GetFilteredByTag(tag string) []*Page {
	var out []*Page
	for _, p := range api.all {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out
}

// GetFilteredByTags returns pages carrying every one of tags.
func (api CollectionAPI) GetFilteredByTags(tags ...string) []*Page {
	var out []*Page
outer:
	for _, p := range api.all {
		for _, t := range tags {
			if !p.HasTag(t) {
				continue outer
			}
		}
		out = append(out, p)
	}
	return out
}

// CollectionFunc builds a custom collection.
type CollectionFunc func(api CollectionAPI) any

func sortPages(pages []*Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		if !pages[i].Date.Equal(pages[j].Date) {
			return pages[i].Date.Before(pages[j].Date)
		}
		return pages[i].InputPath < pages[j].InputPath
	})
}

// BuildResult is what a build produced. Build hooks receive it after all
// pages are written and may add more files through WriteFile.
type BuildResult struct {
	Config      *Config
	Pages       []*Page
	Collections Collections
	Data        map[string]any

	Written int
	Skipped int
	Copied  int
	Elapsed time.Duration

	write func(rel string, data []byte) (bool, error)
}

// WriteFile writes data to rel (slash-separated, relative to the output
// dir), honouring the build cache when one is configured.
func (b *BuildResult) WriteFile(rel string, data []byte) error {
	if b.write != nil {
		written, err := b.write(rel, data)
		if err != nil {
			return err
		}
		if written {
			b.Written++
		} else {
			b.Skipped++
		}
		return nil
	}
	dst := filepath.Join(b.Config.Dir.Output, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	b.Written++
	return nil
}

// MetadataString looks up a string in global data by key path,
// e.g. MetadataString("metadata", "feed", "path").
func (b *BuildResult) MetadataString(keys ...string) string {
	v, ok := lookupPath(b.Data, keys)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
