// Package files discovers local documents eligible for upload.
package files

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"
)

// AllowedExtensions lists the lowercase file extensions accepted for upload.
var AllowedExtensions = []string{".txt", ".pdf", ".docx", ".doc"}

// Entry is a file found by Walk.
type Entry struct {
	Path         string // Path as reachable from the working directory
	RelativeName string // Path relative to the walked root
}

// Allowed reports whether the file name carries an upload-eligible extension.
func Allowed(name string) bool {
	return slices.Contains(AllowedExtensions, strings.ToLower(filepath.Ext(name)))
}

// Walk recursively descends root and yields every regular file with an allowed
// extension. The sequence is lazy and single pass: it reads directories only
// as the consumer pulls entries, and stopping early stops the walk.
// A symlinked root is followed; entry paths stay under root as given.
// Errors are yielded alongside a zero Entry; the walk stops after the first one.
func Walk(root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() || !Allowed(d.Name()) {
				return nil
			}

			rel, err := filepath.Rel(resolved, path)
			if err != nil {
				return err
			}
			if !yield(Entry{Path: filepath.Join(root, rel), RelativeName: rel}, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(Entry{}, err)
		}
	}
}
