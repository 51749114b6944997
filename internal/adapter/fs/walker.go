// Package fs selects source files for ingestion.
package fs

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker matches candidate source files under a root against
// include/exclude globs. Patterns match paths relative to the walked
// root, with forward slashes; excluded directories are pruned without
// descending into them.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{includes: includes, excludes: excludes}
}

// Walk returns the absolute paths of matching regular files under root
// in walk order. Symlinks, devices and other irregular entries are
// skipped: the ingestion pipeline reads file bytes, and following links
// out of the corpus root would silently widen what gets indexed.
func (w *Walker) Walk(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && w.matches(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if w.matches(w.includes, rel) && !w.matches(w.excludes, rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Walker) matches(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// ContentType guesses the declared format from a file extension.
// Unknown extensions default to plain text; the parser decides whether
// the bytes actually decode.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return "text/plain"
	}
}
