// Package navigation builds site menus from `eleventyNavigation` front
// matter:
//
//	eleventyNavigation:
//	  key: About
//	  parent: Home
//	  order: 2
//
// Entries form a tree through their parent keys. Find returns a (sub)tree,
// Breadcrumb the path to an entry, and ToHTML renders nested lists.
package navigation

import (
	"fmt"
	"sort"

	"github.com/eringen/sitegen"
)

// FrontMatterKey is the data key navigation entries are read from.
const FrontMatterKey = "eleventyNavigation"

// Entry is one navigation item.
type Entry struct {
	Key      string
	Parent   string
	Title    string // defaults to Key
	URL      string // defaults to the page URL
	Excerpt  string
	Order    int
	Page     *sitegen.Page
	Children []*Entry
}

func entryFor(p *sitegen.Page) (*Entry, bool) {
	m, ok := p.Data[FrontMatterKey].(map[string]any)
	if !ok {
		return nil, false
	}
	e := &Entry{Page: p, URL: p.URL}
	e.Key, _ = m["key"].(string)
	if e.Key == "" {
		return nil, false
	}
	e.Parent, _ = m["parent"].(string)
	e.Title, _ = m["title"].(string)
	if e.Title == "" {
		e.Title = e.Key
	}
	if u, ok := m["url"].(string); ok && u != "" {
		e.URL = u
	}
	e.Excerpt, _ = m["excerpt"].(string)
	switch o := m["order"].(type) {
	case int:
		e.Order = o
	case float64:
		e.Order = int(o)
	}
	return e, true
}

// entries collects every navigation entry in page order.
func entries(pages []*sitegen.Page) []*Entry {
	var out []*Entry
	for _, p := range pages {
		if e, ok := entryFor(p); ok {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entries below root as a tree. An empty root returns
// the top-level entries, those without a parent.
func Find(pages []*sitegen.Page, root string) []*Entry {
	all := entries(pages)
	byParent := map[string][]*Entry{}
	for _, e := range all {
		byParent[e.Parent] = append(byParent[e.Parent], e)
	}
	return children(byParent, root, map[string]bool{})
}

func children(byParent map[string][]*Entry, parent string, visiting map[string]bool) []*Entry {
	if visiting[parent] {
		return nil
	}
	visiting[parent] = true
	defer delete(visiting, parent)

	list := byParent[parent]
	out := make([]*Entry, 0, len(list))
	for _, e := range list {
		c := *e
		c.Children = children(byParent, e.Key, visiting)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Breadcrumb returns the chain of ancestors of key, outermost first.
// With includeSelf the entry for key ends the chain. Unknown keys return
// nil.
func Breadcrumb(pages []*sitegen.Page, key string, includeSelf bool) ([]*Entry, error) {
	byKey := map[string]*Entry{}
	for _, e := range entries(pages) {
		byKey[e.Key] = e
	}
	e, ok := byKey[key]
	if !ok {
		return nil, nil
	}
	var chain []*Entry
	if includeSelf {
		chain = append(chain, e)
	}
	seen := map[string]bool{key: true}
	for e.Parent != "" {
		if seen[e.Parent] {
			return nil, fmt.Errorf("navigation: parent cycle at %q", e.Parent)
		}
		seen[e.Parent] = true
		parent, ok := byKey[e.Parent]
		if !ok {
			break
		}
		chain = append(chain, parent)
		e = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
