// Package scaffold holds the starter blog written by `sitegen init`.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
)

// Templates contains the starter blog. Files with a .tmpl suffix are
// executed with text/template and written without the suffix; everything
// else, including the site's own Go templates, is copied verbatim.
//
//go:embed all:templates
var Templates embed.FS

const root = "templates"

// Data holds the values substituted into .tmpl files.
type Data struct {
	ProjectName string
	SiteName    string
	URL         string
	AuthorName  string
	AuthorEmail string
}

// Write creates the starter blog in dir, which must not exist yet, and
// returns the created files relative to dir.
func Write(dir string, data Data) ([]string, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("directory %q already exists", dir)
	}
	var created []string
	err := fs.WalkDir(Templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		outRel := strings.TrimSuffix(rel, ".tmpl")
		// Dotfiles for the project itself are stored under plain names.
		if path.Base(outRel) == "dotenv" {
			outRel = path.Join(path.Dir(outRel), ".env.example")
		}
		outPath := filepath.Join(dir, filepath.FromSlash(outRel))

		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}
		content, err := Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if strings.HasSuffix(p, ".tmpl") {
			content, err = execute(p, content, data)
			if err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(outPath, content, 0o644); err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		created = append(created, outRel)
		return nil
	})
	return created, err
}

func execute(name string, content []byte, data Data) ([]byte, error) {
	tmpl, err := template.New(path.Base(name)).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return []byte(b.String()), nil
}

// ToTitle converts a hyphenated or lowercase name to a title-case string,
// e.g. "my-blog" -> "My Blog".
func ToTitle(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
