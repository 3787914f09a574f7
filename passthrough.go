package sitegen

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyPassthrough copies every passthrough path from the input dir into
// the output dir unchanged. Missing paths are skipped.
func (e *Engine) copyPassthrough() (int, error) {
	copied := 0
	for _, p := range e.cfg.PassthroughCopy {
		src := filepath.Join(e.cfg.Dir.Input, filepath.FromSlash(p))
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				e.cfg.Logger.Debug("passthrough path missing", "path", p)
				continue
			}
			return copied, err
		}
		dst := filepath.Join(e.cfg.Dir.Output, filepath.FromSlash(p))
		if !info.IsDir() {
			if err := copyFile(src, dst, info.Mode()); err != nil {
				return copied, fmt.Errorf("sitegen: passthrough %s: %w", p, err)
			}
			copied++
			continue
		}
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)
			if d.IsDir() {
				return os.MkdirAll(target, 0o755)
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if err := copyFile(path, target, fi.Mode()); err != nil {
				return err
			}
			copied++
			return nil
		})
		if err != nil {
			return copied, fmt.Errorf("sitegen: passthrough %s: %w", p, err)
		}
	}
	return copied, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
