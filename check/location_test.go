package check

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestLocation_Resolve(t *testing.T) {
	remote := location{URL: mustURL(t, "https://example.com/css/main.css")}
	local := location{Path: filepath.Join("/site", "css", "main.css")}
	zipped := location{Archive: "/tmp/site.zip", Path: "css/main.css"}

	tests := []struct {
		name string
		base location
		href string
		want string
		bad  bool
	}{
		{"remote relative", remote, "base.css", "https://example.com/css/base.css", false},
		{"remote rooted", remote, "/print.css", "https://example.com/print.css", false},
		{"remote scheme relative", remote, "//cdn.example.com/a.css", "https://cdn.example.com/a.css", false},
		{"remote absolute", local, "http://example.org/a.css", "http://example.org/a.css", false},
		{"data url", remote, "data:text/css,a{}", "", true},
		{"local relative", local, "base.css", filepath.Join("/site", "css", "base.css"), false},
		{"local parent", local, "../theme/dark.css", filepath.Join("/site", "theme", "dark.css"), false},
		{"local file url", local, "file:///etc/site.css", filepath.FromSlash("/etc/site.css"), false},
		{"local fragment only", local, "#top", "", true},
		{"archive relative", zipped, "base.css", filepath.Join("/tmp/site.zip", "css", "base.css"), false},
		{"archive parent", zipped, "../root.css", filepath.Join("/tmp/site.zip", "root.css"), false},
		{"archive rooted", zipped, "/fonts/../root.css", filepath.Join("/tmp/site.zip", "root.css"), false},
		{"archive escape", zipped, "../../evil.css", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.base.resolve(tt.href)
			if tt.bad {
				if !errors.Is(err, errUnsupportedRef) {
					t.Errorf("resolve(%q) = %v, %v, want unsupported reference", tt.href, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve(%q) error = %v", tt.href, err)
			}
			if got.String() != tt.want {
				t.Errorf("resolve(%q) = %s, want %s", tt.href, got, tt.want)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "main.css")
	if err := os.WriteFile(name, []byte("a { color: red }"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("local", func(t *testing.T) {
		ld := &loader{}
		data, ctype, err := ld.load(context.Background(), location{Path: name})
		if err != nil {
			t.Fatalf("load() error = %v", err)
		}
		if string(data) != "a { color: red }" || ctype != "" {
			t.Errorf("load() = %q, %q", data, ctype)
		}
	})

	t.Run("limit", func(t *testing.T) {
		ld := &loader{maxBytes: 5}
		if _, _, err := ld.load(context.Background(), location{Path: name}); !errors.Is(err, ErrTooLarge) {
			t.Errorf("load() error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := (&loader{}).load(ctx, location{Path: name}); !errors.Is(err, context.Canceled) {
			t.Errorf("load() error = %v, want context.Canceled", err)
		}
	})
}

func TestReadLimited(t *testing.T) {
	if data, err := readLimited(strings.NewReader("12345"), 5); err != nil || string(data) != "12345" {
		t.Errorf("readLimited() at limit = %q, %v", data, err)
	}
	if _, err := readLimited(strings.NewReader("123456"), 5); !errors.Is(err, ErrTooLarge) {
		t.Errorf("readLimited() over limit error = %v", err)
	}
	if data, err := readLimited(strings.NewReader("123456"), 0); err != nil || len(data) != 6 {
		t.Errorf("readLimited() without limit = %q, %v", data, err)
	}
}
