// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Walk
// The file argument is the zip.File structure for file in archive which satisfies
// match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// ErrTooLarge is returned by ReadFile for entries above requested limit.
var ErrTooLarge = errors.New("archive entry exceeds size limit")

// errFound stops walking once requested entry was read.
var errFound = errors.New("found")

// Walk walks the all files in the archive which satisfy match condition,
// calling walkFn for each item. Entries with path traversal components
// ("..") or absolute paths make the whole archive rejected to prevent Zip
// Slip attacks.
func Walk(archive, pattern string, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			if err := walkFn(archive, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFile returns content of a single archive entry. Name is slash separated
// path inside archive, limit caps the uncompressed size (0 - no limit).
func ReadFile(archive, name string, limit int64) ([]byte, error) {
	name = strings.TrimPrefix(path.Clean(name), "/")

	var data []byte
	err := Walk(archive, name, func(_ string, f *zip.File) error {
		if f.Name != name {
			return nil
		}
		if limit > 0 && f.UncompressedSize64 > uint64(limit) {
			return fmt.Errorf("%s (%d bytes): %w", name, f.UncompressedSize64, ErrTooLarge)
		}
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer r.Close()

		var src io.Reader = r
		if limit > 0 {
			// header sizes could lie
			src = io.LimitReader(r, limit+1)
		}
		if data, err = io.ReadAll(src); err != nil {
			return err
		}
		if limit > 0 && int64(len(data)) > limit {
			return fmt.Errorf("%s: %w", name, ErrTooLarge)
		}
		return errFound
	})
	switch {
	case errors.Is(err, errFound):
		return data, nil
	case err != nil:
		return nil, err
	}
	return nil, fmt.Errorf("%s in %s: %w", name, archive, fs.ErrNotExist)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
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
