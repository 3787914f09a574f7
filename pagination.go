package sitegen

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"
)

type paginationSpec struct {
	Data    string
	Size    int
	Alias   string
	Filter  []string
	Reverse bool
}

func parsePagination(v any) (*paginationSpec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("pagination must be an object")
	}
	spec := &paginationSpec{Size: 1}
	spec.Data, _ = m["data"].(string)
	if spec.Data == "" {
		return nil, errors.New("pagination.data is required")
	}
	switch s := m["size"].(type) {
	case nil:
	case int:
		spec.Size = s
	case float64:
		spec.Size = int(s)
	default:
		return nil, fmt.Errorf("pagination.size must be a number, got %T", s)
	}
	if spec.Size < 1 {
		return nil, fmt.Errorf("pagination.size must be positive, got %d", spec.Size)
	}
	spec.Alias, _ = m["alias"].(string)
	spec.Filter = normalizeTags(m["filter"])
	spec.Reverse, _ = m["reverse"].(bool)
	return spec, nil
}

// items resolves the paginated sequence from data. Maps paginate over
// their sorted keys.
func (s *paginationSpec) items(data map[string]any) ([]any, error) {
	v, ok := lookupPath(data, strings.Split(s.Data, "."))
	if !ok {
		return nil, fmt.Errorf("pagination data %q not found", s.Data)
	}
	var items []any
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, fmt.Sprint(k.Interface()))
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, k)
		}
	default:
		return nil, fmt.Errorf("pagination data %q is not a list or object", s.Data)
	}
	if len(s.Filter) > 0 {
		kept := items[:0]
		for _, it := range items {
			if !containsString(s.Filter, fmt.Sprint(it)) {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	if s.Reverse {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, nil
}

func chunkItems(items []any, size int) [][]any {
	var chunks [][]any
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// paginate expands a paginated template into one page per chunk.
func (e *Engine) paginate(tmpl *Page, r *renderer, cols Collections) ([]*Page, error) {
	spec := tmpl.pagination
	items, err := spec.items(r.pageData(tmpl, cols))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tmpl.InputPath, err)
	}
	chunks := chunkItems(items, spec.Size)

	pages := make([]*Page, len(chunks))
	for i, chunk := range chunks {
		p := *tmpl
		p.pagination = nil
		p.extra = map[string]any{}
		if spec.Alias != "" {
			if spec.Size == 1 {
				p.extra[spec.Alias] = chunk[0]
			} else {
				p.extra[spec.Alias] = chunk
			}
		}
		pages[i] = &p
		if _, ok := tmpl.Data["permalink"]; !ok && i > 0 {
			base := strings.TrimSuffix(defaultPermalink(tmpl.InputPath), "/")
			p.URL = path.Join(base, fmt.Sprint(i)) + "/"
			p.OutputPath = e.outputFor(p.URL)
			continue
		}
		if err := e.resolvePermalink(&p, r, r.pageData(&p, cols)); err != nil {
			return nil, err
		}
	}

	hrefs := make([]any, len(pages))
	for i, p := range pages {
		hrefs[i] = p.URL
	}
	for i, p := range pages {
		href := map[string]any{"first": hrefs[0], "last": hrefs[len(hrefs)-1]}
		if i > 0 {
			href["previous"] = hrefs[i-1]
		}
		if i < len(hrefs)-1 {
			href["next"] = hrefs[i+1]
		}
		p.extra["pagination"] = map[string]any{
			"items":      chunks[i],
			"pageNumber": i,
			"size":       spec.Size,
			"hrefs":      hrefs,
			"href":       href,
			"pages":      chunks,
		}
	}
	return pages, nil
}
