package check

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// "Привет" in windows-1251
const cp1251Text = "\xCF\xF0\xE8\xE2\xE5\xF2"

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		head string
		want kind
	}{
		{"main.css", "a { color: red }", kindStyleSheet},
		{"MAIN.CSS", "", kindStyleSheet},
		{"index.html", "", kindDocument},
		{"index.HTM", "", kindDocument},
		{"page", "<!DOCTYPE html><html></html>", kindDocument},
		{"page.txt", "\xEF\xBB\xBF  <html><body></body></html>", kindDocument},
		{"site.zip", "PK\x03\x04" + strings.Repeat("\x00", 26), kindArchive},
		{"site.zip", "not a zip", kindUnknown},
		{"notes.txt", "plain text", kindUnknown},
	}
	for _, tt := range tests {
		if got := kindOf(tt.name, []byte(tt.head)); got != tt.want {
			t.Errorf("kindOf(%q, %q) = %d, want %d", tt.name, tt.head, got, tt.want)
		}
	}
}

func TestKindOfFile(t *testing.T) {
	dir := t.TempDir()

	name := filepath.Join(dir, "site.zip")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	if _, err := w.Create("index.html"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if k, err := kindOfFile(name); err != nil || k != kindArchive {
		t.Errorf("kindOfFile(zip) = %d, %v", k, err)
	}

	short := filepath.Join(dir, "a.css")
	if err := os.WriteFile(short, []byte("a{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if k, err := kindOfFile(short); err != nil || k != kindStyleSheet {
		t.Errorf("kindOfFile(short css) = %d, %v", k, err)
	}

	if _, err := kindOfFile(filepath.Join(dir, "missing.css")); err == nil {
		t.Error("kindOfFile() expected error for missing file")
	}
}

func TestIsStyleSheetType(t *testing.T) {
	for ct, want := range map[string]bool{
		"text/css":                      true,
		"Text/CSS; charset=utf-8":       true,
		"text/html":                     false,
		"text/plain; charset=us-ascii":  false,
		"":                              false,
	} {
		if got := isStyleSheetType(ct); got != want {
			t.Errorf("isStyleSheetType(%q) = %v, want %v", ct, got, want)
		}
	}
}

func TestCharsetRule(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`@charset "windows-1251"; a {}`, "windows-1251"},
		{`@charset "";`, ""},
		{`@charset 'utf-8';`, ""},
		{` @charset "utf-8";`, ""},
		{`@CHARSET "utf-8";`, ""},
		{`a {}`, ""},
	}
	for _, tt := range tests {
		if got := charsetRule([]byte(tt.data)); got != tt.want {
			t.Errorf("charsetRule(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestDecodeStyleSheet(t *testing.T) {
	content := `a::after { content: "` + cp1251Text + `" }`

	tests := []struct {
		name     string
		data     string
		ctype    string
		fallback string
		want     string
		wantEnc  string
	}{
		{"plain", `a { content: "é" }`, "", "", `a { content: "é" }`, "utf-8"},
		{"utf-8 bom", "\xEF\xBB\xBFa{}", "text/css; charset=windows-1251", "", "a{}", "utf-8"},
		{"utf-16 bom", "\xFF\xFEa\x00{\x00}\x00", "", "", "a{}", "utf-16le"},
		{"content type", content, "text/css; charset=windows-1251", "", `a::after { content: "Привет" }`, "windows-1251"},
		{"charset rule", `@charset "windows-1251";` + content, "", "", `@charset "windows-1251";a::after { content: "Привет" }`, "windows-1251"},
		{"content type wins", `@charset "utf-8";` + content, "text/css;charset=windows-1251", "", `@charset "utf-8";a::after { content: "Привет" }`, "windows-1251"},
		{"referring document", content, "text/css", "windows-1251", `a::after { content: "Привет" }`, "windows-1251"},
		{"unknown charset", `@charset "x-bogus"; a {}`, "", "", `@charset "x-bogus"; a {}`, "utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := decodeStyleSheet([]byte(tt.data), tt.ctype, tt.fallback)
			if err != nil {
				t.Fatalf("decodeStyleSheet() error = %v", err)
			}
			if got != tt.want || enc != tt.wantEnc {
				t.Errorf("decodeStyleSheet() = %q (%s), want %q (%s)", got, enc, tt.want, tt.wantEnc)
			}
		})
	}
}

func TestDecodeDocument(t *testing.T) {
	t.Run("meta charset", func(t *testing.T) {
		doc := `<html><head><meta charset="windows-1251"></head><body>` + cp1251Text + `</body></html>`
		text, enc, err := decodeDocument([]byte(doc), "")
		if err != nil {
			t.Fatalf("decodeDocument() error = %v", err)
		}
		if !strings.Contains(text, "Привет") || enc != "windows-1251" {
			t.Errorf("decodeDocument() = %q (%s)", text, enc)
		}
	})

	t.Run("content type", func(t *testing.T) {
		text, enc, err := decodeDocument([]byte("<p>"+cp1251Text+"</p>"), "text/html; charset=windows-1251")
		if err != nil {
			t.Fatalf("decodeDocument() error = %v", err)
		}
		if text != "<p>Привет</p>" || enc != "windows-1251" {
			t.Errorf("decodeDocument() = %q (%s)", text, enc)
		}
	})

	t.Run("guessed", func(t *testing.T) {
		text, enc, err := decodeDocument([]byte("<p>plain</p>"), "")
		if err != nil {
			t.Fatalf("decodeDocument() error = %v", err)
		}
		if text != "<p>plain</p>" || enc != "" {
			t.Errorf("decodeDocument() = %q (%q)", text, enc)
		}
	})
}
