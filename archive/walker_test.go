package archive

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

type entry struct {
	name    string
	content string
}

func makeZip(t *testing.T, entries ...entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "site.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return zipPath
}

var siteEntries = []entry{
	{"css/", ""},
	{"css/main.css", "a { color: red }"},
	{"css/print.css", "@media print { a { display: none } }"},
	{"index.html", "<html><head><style>b{}</style></head></html>"},
	{"CSS/upper.css", "i {}"},
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t, siteEntries...)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"css/", []string{"css/main.css", "css/print.css"}},
		{"css/main", []string{"css/main.css"}},
		{"CSS/", []string{"CSS/upper.css"}},
		{"", []string{"CSS/upper.css", "css/main.css", "css/print.css", "index.html"}},
		{"fonts/", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.pattern, func(archive string, file *zip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, file.Name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			sort.Strings(visited)
			if strings.Join(visited, ",") != strings.Join(tt.want, ",") {
				t.Errorf("visited %v, want %v", visited, tt.want)
			}
		})
	}
}

func TestWalk_Errors(t *testing.T) {
	t.Run("walkFn returns error", func(t *testing.T) {
		zipPath := makeZip(t, siteEntries...)
		stop := errors.New("stop")
		calls := 0
		err := Walk(zipPath, "", func(string, *zip.File) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) || calls != 1 {
			t.Errorf("Walk() error = %v after %d calls", err, calls)
		}
	})

	t.Run("nonexistent file", func(t *testing.T) {
		if err := Walk("/nonexistent/site.zip", "", func(string, *zip.File) error { return nil }); err == nil {
			t.Error("Expected error for nonexistent archive")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.zip")
		if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := Walk(bad, "", func(string, *zip.File) error { return nil }); err == nil {
			t.Error("Expected error for invalid archive")
		}
	})

	t.Run("zip slip", func(t *testing.T) {
		zipPath := makeZip(t, entry{"css/main.css", "a{}"}, entry{"../../evil.css", "b{}"})
		err := Walk(zipPath, "", func(string, *zip.File) error { return nil })
		if err == nil {
			t.Error("Walk() should reject archive with unsafe entries")
		}
	})
}

func TestReadFile(t *testing.T) {
	zipPath := makeZip(t, siteEntries...)

	t.Run("exact name", func(t *testing.T) {
		data, err := ReadFile(zipPath, "css/main.css", 0)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(data) != "a { color: red }" {
			t.Errorf("ReadFile() = %q", data)
		}
	})

	t.Run("cleaned name", func(t *testing.T) {
		data, err := ReadFile(zipPath, "/css/../css/print.css", 0)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !strings.HasPrefix(string(data), "@media print") {
			t.Errorf("ReadFile() = %q", data)
		}
	})

	t.Run("prefix is not a match", func(t *testing.T) {
		if _, err := ReadFile(zipPath, "css/main", 0); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("ReadFile() error = %v, want fs.ErrNotExist", err)
		}
	})

	t.Run("limit", func(t *testing.T) {
		if _, err := ReadFile(zipPath, "css/main.css", 4); !errors.Is(err, ErrTooLarge) {
			t.Errorf("ReadFile() error = %v, want ErrTooLarge", err)
		}
	})
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"css/main.css", true},
		{"a..b/c.css", true},
		{"/etc/passwd", false},
		{`\windows\evil.css`, false},
		{"css/../../evil.css", false},
		{"..", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
