// Package archive builds a Walk abstraction on top of "archive/zip" for
// reading case study bundles.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// WalkFunc is called for each file entry under the requested prefix. The
// bundle argument is the path passed to Walk, file is the matching entry.
// A returned error stops the walk.
type WalkFunc func(bundle string, file *zip.File) error

// Walk visits every file entry of the bundle whose name starts with
// prefix, calling walkFn for each. Entries with path traversal
// components ("..") or absolute paths abort the walk to prevent Zip Slip
// attacks. Directory entries are skipped.
func Walk(bundle, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(bundle)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("bundle entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(bundle, f); err != nil {
			return err
		}
	}
	return nil
}

// ReadEntry reads the full content of a single named entry. Returns nil
// data (no error) when the entry does not exist, so optional bundle
// parts read cleanly.
func ReadEntry(bundle, name string) ([]byte, error) {
	r, err := zip.OpenReader(bundle)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileHeader.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("unable to open bundle entry %q: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("unable to read bundle entry %q: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

// isSafePath returns false for entry names that could escape an
// extraction directory: absolute paths and those containing ".."
// components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
