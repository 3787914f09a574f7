package navigation

import (
	"html/template"
	"strings"
	"testing"

	"github.com/eringen/sitegen"
)

func navPage(url string, nav map[string]any) *sitegen.Page {
	return &sitegen.Page{URL: url, Data: map[string]any{FrontMatterKey: nav}}
}

func testPages() []*sitegen.Page {
	return []*sitegen.Page{
		navPage("/", map[string]any{"key": "Home", "order": 1}),
		navPage("/archive/", map[string]any{"key": "Archive", "order": 2}),
		navPage("/about/", map[string]any{"key": "About Me", "order": 3, "excerpt": "Who & why"}),
		navPage("/about/team/", map[string]any{"key": "Team", "parent": "About Me", "order": 2.0}),
		navPage("/about/history/", map[string]any{"key": "History", "parent": "About Me", "order": 1, "title": "Our History"}),
		{URL: "/posts/firstpost/", Data: map[string]any{"title": "no nav"}},
		navPage("/broken/", map[string]any{"parent": "Home"}),
	}
}

func keys(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func TestFindTopLevel(t *testing.T) {
	got := Find(testPages(), "")
	if want := "Home,Archive,About Me"; strings.Join(keys(got), ",") != want {
		t.Fatalf("Find() keys = %v, want %s", keys(got), want)
	}
	about := got[2]
	if want := "History,Team"; strings.Join(keys(about.Children), ",") != want {
		t.Errorf("children = %v, want %s (sorted by order)", keys(about.Children), want)
	}
	if about.Children[0].Title != "Our History" {
		t.Errorf("title override = %q", about.Children[0].Title)
	}
	if about.Children[1].Title != "Team" {
		t.Errorf("title should default to key, got %q", about.Children[1].Title)
	}
	if about.URL != "/about/" || about.Page == nil {
		t.Errorf("entry should carry page URL and page, got %q", about.URL)
	}
}

func TestFindSubtree(t *testing.T) {
	got := Find(testPages(), "About Me")
	if want := "History,Team"; strings.Join(keys(got), ",") != want {
		t.Errorf("Find(About Me) = %v, want %s", keys(got), want)
	}
	if len(Find(testPages(), "Nope")) != 0 {
		t.Error("unknown root should yield no entries")
	}
}

func TestFindURLOverride(t *testing.T) {
	pages := []*sitegen.Page{navPage("/x/", map[string]any{"key": "Ext", "url": "https://example.com/"})}
	got := Find(pages, "")
	if len(got) != 1 || got[0].URL != "https://example.com/" {
		t.Errorf("url override not applied: %+v", got)
	}
}

func TestFindIgnoresCycles(t *testing.T) {
	pages := []*sitegen.Page{
		navPage("/a/", map[string]any{"key": "A", "parent": "B"}),
		navPage("/b/", map[string]any{"key": "B", "parent": "A"}),
	}
	got := Find(pages, "A")
	if len(got) != 1 || got[0].Key != "B" {
		t.Fatalf("Find(A) = %v", keys(got))
	}
	back := got[0].Children
	if len(back) != 1 || back[0].Key != "A" || len(back[0].Children) != 0 {
		t.Errorf("cycle should stop descent at the root, got %v", keys(back))
	}
}

func TestBreadcrumb(t *testing.T) {
	tests := []struct {
		key         string
		includeSelf bool
		want        string
	}{
		{"Team", false, "About Me"},
		{"Team", true, "About Me,Team"},
		{"Home", false, ""},
		{"Home", true, "Home"},
		{"Missing", true, ""},
	}
	for _, tt := range tests {
		got, err := Breadcrumb(testPages(), tt.key, tt.includeSelf)
		if err != nil {
			t.Fatalf("Breadcrumb(%q) failed: %v", tt.key, err)
		}
		if s := strings.Join(keys(got), ","); s != tt.want {
			t.Errorf("Breadcrumb(%q, %v) = %q, want %q", tt.key, tt.includeSelf, s, tt.want)
		}
	}
}

func TestBreadcrumbCycle(t *testing.T) {
	pages := []*sitegen.Page{
		navPage("/a/", map[string]any{"key": "A", "parent": "B"}),
		navPage("/b/", map[string]any{"key": "B", "parent": "A"}),
	}
	if _, err := Breadcrumb(pages, "A", true); err == nil {
		t.Error("expected cycle error")
	}
}

func TestToHTML(t *testing.T) {
	got := ToHTML(Find(testPages(), ""), HTMLOptions{
		ActiveKey:           "Archive",
		ActiveListItemClass: "active",
		ActiveAnchorClass:   "current",
		ListItemClass:       "nav-item",
		ShowExcerpt:         true,
	})
	want := `<ul>` +
		`<li class="nav-item"><a href="/">Home</a></li>` +
		`<li class="nav-item active"><a href="/archive/" class="current">Archive</a></li>` +
		`<li class="nav-item"><a href="/about/">About Me</a>: Who &amp; why` +
		`<ul><li class="nav-item"><a href="/about/history/">Our History</a></li>` +
		`<li class="nav-item"><a href="/about/team/">Team</a></li></ul>` +
		`</li></ul>`
	if string(got) != want {
		t.Errorf("ToHTML()\n  got:  %s\n  want: %s", got, want)
	}
}

func TestToHTMLEmptyAndPrefix(t *testing.T) {
	if got := ToHTML(nil, HTMLOptions{}); got != "" {
		t.Errorf("empty entries should render nothing, got %q", got)
	}
	got := ToHTML(Find(testPages(), "About Me"), HTMLOptions{PathPrefix: "/blog/", ListElement: "ol"})
	if !strings.HasPrefix(string(got), `<ol><li><a href="/blog/about/history/">`) {
		t.Errorf("prefix or list element not applied: %s", got)
	}
}

func TestPluginFilters(t *testing.T) {
	cfg := &sitegen.Config{PathPrefix: "/"}
	cfg.AddPlugin(Plugin)

	find := cfg.GetFilter("eleventyNavigation").(func(...any) ([]*Entry, error))
	crumb := cfg.GetFilter("eleventyNavigationBreadcrumb").(func(...any) ([]*Entry, error))
	toHTML := cfg.GetFilter("eleventyNavigationToHtml").(func(...any) (template.HTML, error))

	entries, err := find(testPages())
	if err != nil || len(entries) != 3 {
		t.Fatalf("find = %v, %v", keys(entries), err)
	}
	sub, err := find("About Me", testPages())
	if err != nil || len(sub) != 2 {
		t.Fatalf("find with root = %v, %v", keys(sub), err)
	}
	chain, err := crumb("Team", true, testPages())
	if err != nil || strings.Join(keys(chain), ",") != "About Me,Team" {
		t.Errorf("crumb = %v, %v", keys(chain), err)
	}

	// The path prefix is read when the filter runs, not when it is registered.
	cfg.PathPrefix = "/blog/"
	out, err := toHTML(map[string]any{"activeKey": "Home", "activeAnchorClass": "on"}, entries)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `<a href="/blog/" class="on">Home</a>`) {
		t.Errorf("toHTML = %s", out)
	}

	if _, err := toHTML("bad", entries); err == nil {
		t.Error("expected error for non-dict options")
	}
	if _, err := find(42); err == nil {
		t.Error("expected error for non-page argument")
	}
}
