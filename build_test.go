package sitegen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, files map[string]string, opts ...Option) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	cfg := &Config{
		Dir:                    Dirs{Input: dir, Output: filepath.Join(dir, "_site")},
		MarkdownTemplateEngine: EngineGoTemplate,
		HTMLTemplateEngine:     EngineGoTemplate,
		Logger:                 slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	e := New(cfg, opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e, cfg.Dir.Output
}

func readOutput(t *testing.T, out, rel string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
	require.NoError(t, err, rel)
	return string(raw)
}

var layoutFiles = map[string]string{
	"_includes/base.html": "---\ntemplateClass: tmpl-base\n---\n" +
		"<html><title>{{ .title }}</title><main class=\"{{ .templateClass }}\">{{ .content }}</main></html>",
	"_includes/post.html": "---\nlayout: base.html\ntemplateClass: tmpl-post\n---\n" +
		"<article>{{ .content }}</article>",
}

func withFiles(extra map[string]string) map[string]string {
	files := map[string]string{}
	for k, v := range layoutFiles {
		files[k] = v
	}
	for k, v := range extra {
		files[k] = v
	}
	return files
}

func TestBuildPermalinksAndLayouts(t *testing.T) {
	e, out := newTestEngine(t, withFiles(map[string]string{
		"index.md":       "---\ntitle: Home\nlayout: base.html\n---\n# Hello\n",
		"posts/first.md": "---\ntitle: First\nlayout: post\ndate: 2020-01-02\ntags: posts\n---\nFirst body\n",
		"about.html":     "---\npermalink: /about-us/\n---\n<p>About {{ .page.URL }}</p>",
		"draft.md":       "---\npermalink: false\n---\nsecret",
		"plain.html":     "---\nslugbase: plain\npermalink: \"/{{ .slugbase }}.txt\"\n---\nx",
	}), WithLayoutAlias("post", "post.html"))

	res, err := e.Build(context.Background())
	require.NoError(t, err)

	home := readOutput(t, out, "index.html")
	assert.Contains(t, home, "<title>Home</title>")
	assert.Contains(t, home, "Hello</h1>")
	assert.Contains(t, home, `<main class="tmpl-base">`)

	post := readOutput(t, out, "posts/first/index.html")
	assert.Contains(t, post, `<main class="tmpl-post"><article><p>First body</p>`)
	assert.Contains(t, post, "<title>First</title>")

	assert.Contains(t, readOutput(t, out, "about-us/index.html"), "<p>About /about-us/</p>")
	assert.Equal(t, "x", readOutput(t, out, "plain.txt"))
	assert.NoDirExists(t, filepath.Join(out, "draft"))
	assert.NoDirExists(t, filepath.Join(out, "_includes"))

	var draft *Page
	for _, p := range res.Pages {
		if p.InputPath == "draft.md" {
			draft = p
		}
	}
	require.NotNil(t, draft)
	assert.Empty(t, draft.URL)
	assert.Empty(t, draft.OutputPath)

	assert.Len(t, res.Collections.Pages("posts"), 1)
	assert.Len(t, res.Collections.Pages("all"), 5)
	assert.Equal(t, 4, res.Written)
}

func TestBuildPageFields(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"posts/2019-02-03-hello.md": "---\ntags: [posts, go]\n---\nhi",
		"about/index.md":            "about",
	})

	res, err := e.Build(context.Background())
	require.NoError(t, err)

	byPath := map[string]*Page{}
	for _, p := range res.Pages {
		byPath[p.InputPath] = p
	}
	hello := byPath["posts/2019-02-03-hello.md"]
	require.NotNil(t, hello)
	assert.Equal(t, "hello", hello.FileSlug)
	assert.Equal(t, "/posts/2019-02-03-hello", hello.FilePathStem)
	assert.Equal(t, 2019, hello.Date.Year())
	assert.Equal(t, []string{"posts", "go"}, hello.Tags)
	assert.Equal(t, "<p>hi</p>\n", string(hello.TemplateContent))

	about := byPath["about/index.md"]
	require.NotNil(t, about)
	assert.Equal(t, "about", about.FileSlug)
	assert.Equal(t, "/about/", about.URL)
}

func TestBuildCollectionsSortedByDate(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.md":       "---\ndate: 2020-03-01\ntags: posts\n---\na",
		"b.md":       "---\ndate: 2019-03-01\ntags: posts\n---\nb",
		"c.md":       "---\ndate: 2021-03-01\ntags: posts\neleventyExcludeFromCollections: true\n---\nc",
		"d.md":       "---\ndate: 2019-03-01\ntags: [posts, other]\n---\nd",
		"listing.md": "---\ndate: 2018-01-01\n---\n{{ range $i, $p := .collections.posts }}{{ if $i }} {{ end }}{{ $p.FileSlug }}{{ end }}",
	}, WithCollection("custom", func(api CollectionAPI) any {
		return len(api.GetFilteredByTags("posts", "other"))
	}))

	res, err := e.Build(context.Background())
	require.NoError(t, err)

	var slugs []string
	for _, p := range res.Collections.Pages("posts") {
		slugs = append(slugs, p.FileSlug)
	}
	assert.Equal(t, []string{"b", "d", "a"}, slugs)
	assert.Equal(t, 1, res.Collections["custom"])
	assert.Len(t, res.Collections.Pages("other"), 1)

	for _, p := range res.Pages {
		if p.InputPath == "listing.md" {
			assert.Equal(t, "<p>b d a</p>\n", string(p.TemplateContent))
		}
	}
}

func TestBuildAllTagKeepsPagesUnique(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.md": "---\ntags: [all, post]\n---\na",
		"b.md": "b",
		"c.md": "c",
	})
	res, err := e.Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Collections.Pages("all"), 3)
	assert.Len(t, res.Collections.Pages("post"), 1)
}

func TestBuildReservedCollectionName(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"a.md": "a"},
		WithCollection("all", func(api CollectionAPI) any { return nil }))
	_, err := e.Build(context.Background())
	assert.ErrorContains(t, err, "reserved")
}

func TestBuildOutputConflict(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.md": "---\npermalink: /same/\n---\na",
		"b.md": "---\npermalink: /same/\n---\nb",
	})
	_, err := e.Build(context.Background())
	assert.ErrorContains(t, err, "output conflict")
}

func TestBuildUnknownLayout(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"a.md": "---\nlayout: nope\n---\na"})
	_, err := e.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLayout))
}

func TestBuildLayoutCycle(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"_includes/a.html": "---\nlayout: b.html\n---\n{{ .content }}",
		"_includes/b.html": "---\nlayout: a.html\n---\n{{ .content }}",
		"page.md":          "---\nlayout: a.html\n---\nx",
	})
	_, err := e.Build(context.Background())
	assert.ErrorContains(t, err, "layout cycle")
}

func TestBuildLayoutWithoutExtension(t *testing.T) {
	e, out := newTestEngine(t, withFiles(map[string]string{
		"page.md": "---\nlayout: base\ntitle: T\n---\nx",
	}))
	_, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, readOutput(t, out, "page/index.html"), "<title>T</title>")
}

func TestBuildIncrementalCache(t *testing.T) {
	files := map[string]string{
		"index.md": "home",
		"about.md": "about",
	}
	dir := t.TempDir()
	e, out := newTestEngine(t, files, WithBuildCache(filepath.Join(dir, "build.db")))
	input := e.Config().Dir.Input

	res, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 0, res.Skipped)

	res, err = e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written)
	assert.Equal(t, 2, res.Skipped)

	writeFiles(t, input, map[string]string{"about.md": "about, edited"})
	res, err = e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Contains(t, readOutput(t, out, "about/index.html"), "about, edited")

	require.NoError(t, os.Remove(filepath.Join(out, "index.html")))
	res, err = e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.FileExists(t, filepath.Join(out, "index.html"))
}

func TestBuildWithoutCacheAlwaysWrites(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"index.md": "home"})
	for i := 0; i < 2; i++ {
		res, err := e.Build(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Written)
	}
}

func TestBuildPassthrough(t *testing.T) {
	e, out := newTestEngine(t, map[string]string{
		"img/a.png":     "png",
		"img/sub/b.svg": "<svg/>",
		"img/page.md":   "# not a template",
		"css/index.css": "body{}",
		"favicon.ico":   "ico",
		"index.md":      "home",
	}, WithPassthroughCopy("img"), WithPassthroughCopy("css"), WithPassthroughCopy("favicon.ico"), WithPassthroughCopy("missing"))

	res, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Copied)
	assert.Equal(t, "png", readOutput(t, out, "img/a.png"))
	assert.Equal(t, "<svg/>", readOutput(t, out, "img/sub/b.svg"))
	assert.Equal(t, "# not a template", readOutput(t, out, "img/page.md"))
	assert.Equal(t, "body{}", readOutput(t, out, "css/index.css"))
	assert.Equal(t, "ico", readOutput(t, out, "favicon.ico"))
	assert.NoDirExists(t, filepath.Join(out, "img", "page"))
}

func TestBuildIgnoreFile(t *testing.T) {
	e, out := newTestEngine(t, map[string]string{
		".sitegenignore":    "# comment\n./README.md\ndrafts\n",
		"README.md":         "readme",
		"drafts/wip.md":     "wip",
		"index.md":          "home",
		".hidden/secret.md": "secret",
	})
	res, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Pages, 1)
	assert.NoDirExists(t, filepath.Join(out, "README"))
	assert.NoDirExists(t, filepath.Join(out, "drafts"))
}

func TestBuildHooks(t *testing.T) {
	var seen *BuildResult
	e, out := newTestEngine(t, map[string]string{
		"_data/metadata.json": `{"feed": {"path": "/feed.xml"}}`,
		"index.md":            "home",
	}, WithBuildHook(func(ctx context.Context, b *BuildResult) error {
		seen = b
		return b.WriteFile("extra"+b.MetadataString("metadata", "feed", "path"), []byte("extra"))
	}))

	res, err := e.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, "extra", readOutput(t, out, "extra/feed.xml"))
	assert.Empty(t, res.MetadataString("metadata", "missing"))
}

func TestBuildHookError(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"index.md": "home"},
		WithBuildHook(func(ctx context.Context, b *BuildResult) error {
			return errors.New("boom")
		}))
	_, err := e.Build(context.Background())
	assert.ErrorContains(t, err, "build hook: boom")
	assert.Error(t, e.status.get())
}

func TestBuildPagination(t *testing.T) {
	e, out := newTestEngine(t, map[string]string{
		"_data/items.json": `["a", "b", "c"]`,
		"list.html": "---\npagination:\n  data: items\n  size: 2\n---\n" +
			"{{ range .pagination.items }}[{{ . }}]{{ end }}{{ with .pagination.href.next }} next={{ . }}{{ end }}",
		"one.md":   "---\ntags: a\n---\none",
		"two.md":   "---\ntags: [a, b]\n---\ntwo",
		"tag.html": "---\npagination:\n  data: collections\n  size: 1\n  alias: tag\n  filter: [all]\npermalink: \"/tags/{{ .tag }}/\"\n---\n" +
			"{{ .tag }}: {{ len (index .collections .tag) }}",
	})

	res, err := e.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "[a][b] next=/list/1/", readOutput(t, out, "list/index.html"))
	assert.Equal(t, "[c]", readOutput(t, out, "list/1/index.html"))
	assert.Equal(t, "a: 2", readOutput(t, out, "tags/a/index.html"))
	assert.Equal(t, "b: 1", readOutput(t, out, "tags/b/index.html"))

	for _, p := range res.Collections.Pages("all") {
		assert.NotEqual(t, "list.html", p.InputPath, "paginated templates stay out of collections")
		assert.NotEqual(t, "tag.html", p.InputPath, "paginated templates stay out of collections")
	}
}

func TestBuildReverseBuiltin(t *testing.T) {
	e, out := newTestEngine(t, map[string]string{
		"rev.html": "---\nnums: [1, 2, 3]\n---\n{{ range reverse .nums }}{{ . }}{{ end }}",
	})
	_, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "321", readOutput(t, out, "rev/index.html"))
}

func TestBuildCustomFilterAndPathPrefix(t *testing.T) {
	e, out := newTestEngine(t, map[string]string{
		"index.html": `<a href="{{ url "/posts/" }}">{{ shout "hi" }}</a>`,
	}, WithFilter("shout", func(s string) string { return s + "!" }))
	e.Config().PathPrefix = "/blog/"

	_, err := e.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `<a href="/blog/posts/">hi!</a>`, readOutput(t, out, "index.html"))
}

func TestBuildCancelled(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"index.md": "home"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"sitegen.yaml": "dir:\n  output: public\npathPrefix: /blog/\ncache: .cache/build.db\npassthroughCopy: [fonts]\n",
	})
	cfg := &Config{PassthroughCopy: []string{"img"}}
	require.NoError(t, LoadProjectFile(filepath.Join(dir, "sitegen.yaml"), cfg))
	assert.Equal(t, "public", cfg.Dir.Output)
	assert.Equal(t, "/blog/", cfg.PathPrefix)
	assert.Equal(t, ".cache/build.db", cfg.CachePath)
	assert.Equal(t, []string{"img", "fonts"}, cfg.PassthroughCopy)

	assert.NoError(t, LoadProjectFile(filepath.Join(dir, "missing.yaml"), cfg))

	writeFiles(t, dir, map[string]string{"bad.yaml": "dir: [\n"})
	assert.Error(t, LoadProjectFile(filepath.Join(dir, "bad.yaml"), cfg))
}
