package sitegen

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMergeDataShallow(t *testing.T) {
	dst := map[string]any{"a": 1, "m": map[string]any{"x": 1}, "tags": "posts"}
	src := map[string]any{"m": map[string]any{"y": 2}, "tags": []any{"go"}}

	got := mergeData(dst, src, false)
	if !reflect.DeepEqual(got["m"], map[string]any{"y": 2}) {
		t.Errorf("shallow merge should replace maps, got %v", got["m"])
	}
	if !reflect.DeepEqual(got["tags"], []any{"go"}) {
		t.Errorf("shallow merge should replace tags, got %v", got["tags"])
	}
	if got["a"] != 1 {
		t.Errorf("expected a to survive, got %v", got["a"])
	}
	if _, ok := dst["m"].(map[string]any)["y"]; ok {
		t.Error("mergeData must not modify dst")
	}
}

func TestMergeDataDeep(t *testing.T) {
	dst := map[string]any{
		"m":     map[string]any{"x": 1, "n": map[string]any{"p": 1}},
		"list":  []any{1},
		"tags":  "posts",
		"title": "old",
	}
	src := map[string]any{
		"m":     map[string]any{"y": 2, "n": map[string]any{"q": 2}},
		"list":  []any{2},
		"tags":  []any{"go", "posts"},
		"title": "new",
	}

	got := mergeData(dst, src, true)
	want := map[string]any{
		"m":     map[string]any{"x": 1, "y": 2, "n": map[string]any{"p": 1, "q": 2}},
		"list":  []any{1, 2},
		"tags":  []any{"posts", "go"},
		"title": "new",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeData deep = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(dst["list"], []any{1}) {
		t.Error("mergeData must not modify dst lists")
	}
}

func TestLoadGlobalData(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"metadata.json": `{"title": "Blog", "feed": {"path": "/feed.xml"}}`,
		"site.yaml":     "nav:\n  - home\n  - about\n",
		"notes.txt":     "ignored",
		"nested/x.json": `{"ignored": true}`,
	})

	data, err := loadGlobalData(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 {
		t.Errorf("expected 2 data keys, got %v", data)
	}
	if v, ok := lookupPath(data, []string{"metadata", "feed", "path"}); !ok || v != "/feed.xml" {
		t.Errorf("metadata.feed.path = %v, %v", v, ok)
	}
	if !reflect.DeepEqual(data["site"], map[string]any{"nav": []any{"home", "about"}}) {
		t.Errorf("site = %v", data["site"])
	}
}

func TestLoadGlobalDataMissingDir(t *testing.T) {
	data, err := loadGlobalData(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty data, got %v", data)
	}
}

func TestLoadGlobalDataInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"broken.json": "{"})
	if _, err := loadGlobalData(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestDataCascade(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"posts/posts.json":        `{"layout": "post", "tags": "posts", "author": {"name": "A"}}`,
		"posts/2018/2018.yaml":    "year: 2018\nauthor:\n  email: a@example.com\n",
		"posts/2018/hello.json":   `{"tags": ["hello"], "layout": "special"}`,
		"posts/2018/hello.md":     "",
		"pages/about.md":          "",
		"posts/2018/nodata.md":    "",
		"posts/2018/nodata.other": "",
	})

	dc := newDataCascade(dir, true)
	got, err := dc.forTemplate("posts/2018/hello.md")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"layout": "special",
		"tags":   []any{"posts", "hello"},
		"year":   2018,
		"author": map[string]any{"name": "A", "email": "a@example.com"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("forTemplate = %v, want %v", got, want)
	}

	got, err = dc.forTemplate("pages/about.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no data for pages/about.md, got %v", got)
	}

	got, err = dc.forTemplate("posts/2018/nodata.md")
	if err != nil {
		t.Fatal(err)
	}
	if got["layout"] != "post" {
		t.Errorf("expected directory layout, got %v", got["layout"])
	}
}

func TestDataCascadeShallow(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"posts/posts.json": `{"tags": "posts", "author": {"name": "A"}}`,
		"posts/hello.json": `{"tags": ["hello"], "author": {"email": "a@example.com"}}`,
	})

	got, err := newDataCascade(dir, false).forTemplate("posts/hello.md")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got["tags"], []any{"hello"}) {
		t.Errorf("tags = %v", got["tags"])
	}
	if !reflect.DeepEqual(got["author"], map[string]any{"email": "a@example.com"}) {
		t.Errorf("author = %v", got["author"])
	}
}

func TestDataCascadeRejectsNonObject(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"posts/posts.json": `["a"]`})
	if _, err := newDataCascade(dir, true).forTemplate("posts/x.md"); err == nil {
		t.Error("expected error for a non-object directory data file")
	}
}

func TestLookupPath(t *testing.T) {
	data := map[string]any{
		"collections": Collections{"posts": []*Page{{InputPath: "a.md"}}},
		"m":           map[string]any{"n": map[string]string{"k": "v"}},
	}
	if v, ok := lookupPath(data, []string{"m", "n", "k"}); !ok || v != "v" {
		t.Errorf("lookupPath typed map = %v, %v", v, ok)
	}
	if v, ok := lookupPath(data, []string{"collections", "posts"}); !ok || len(v.([]*Page)) != 1 {
		t.Errorf("lookupPath collections = %v, %v", v, ok)
	}
	if _, ok := lookupPath(data, []string{"m", "missing"}); ok {
		t.Error("expected missing key")
	}
	if _, ok := lookupPath(data, []string{"m", "n", "k", "deeper"}); ok {
		t.Error("expected lookup through a string to fail")
	}
}
