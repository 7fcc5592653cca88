package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"csscompat/archive"
)

var errUnsupportedRef = errors.New("unsupported reference")

// location is where a document or a stylesheet comes from: remote URL, local
// file or an entry of local zip archive (slash separated Path inside Archive).
type location struct {
	URL     *url.URL
	Path    string
	Archive string
}

func (l location) String() string {
	switch {
	case l.URL != nil:
		return l.URL.String()
	case len(l.Archive) > 0:
		return filepath.Join(l.Archive, filepath.FromSlash(l.Path))
	default:
		return l.Path
	}
}

// resolve returns location of href referenced from a document or stylesheet
// at l.
func (l location) resolve(href string) (location, error) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return location{}, fmt.Errorf("bad reference %q: %w", href, err)
	}

	if ref.IsAbs() {
		switch strings.ToLower(ref.Scheme) {
		case "http", "https":
			return location{URL: ref}, nil
		case "file":
			return location{Path: filepath.FromSlash(ref.Path)}, nil
		}
		return location{}, fmt.Errorf("%q: %w", href, errUnsupportedRef)
	}
	if l.URL != nil {
		return location{URL: l.URL.ResolveReference(ref)}, nil
	}
	if len(ref.Path) == 0 {
		return location{}, fmt.Errorf("%q: %w", href, errUnsupportedRef)
	}

	if len(l.Archive) > 0 {
		name := ref.Path
		if strings.HasPrefix(name, "/") {
			name = path.Clean(name)[1:]
		} else {
			name = path.Join(path.Dir(l.Path), name)
		}
		if name == ".." || strings.HasPrefix(name, "../") {
			return location{}, fmt.Errorf("%q points outside of archive: %w", href, errUnsupportedRef)
		}
		return location{Archive: l.Archive, Path: name}, nil
	}

	name := filepath.FromSlash(ref.Path)
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(l.Path), name)
	}
	return location{Path: name}, nil
}

// loader reads content of locations.
type loader struct {
	fetcher  *Fetcher
	maxBytes int64
}

// load returns raw content and its media type when known.
func (ld *loader) load(ctx context.Context, l location) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	switch {
	case l.URL != nil:
		return ld.fetcher.Fetch(ctx, l.URL.String())
	case len(l.Archive) > 0:
		data, err := archive.ReadFile(l.Archive, l.Path, ld.maxBytes)
		return data, "", err
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := readLimited(f, ld.maxBytes)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", l.Path, err)
	}
	return data, "", nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("more than %d bytes: %w", limit, ErrTooLarge)
	}
	return data, nil
}
