package check

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// kind of local input.
type kind int

const (
	kindUnknown kind = iota
	kindStyleSheet
	kindDocument
	kindArchive
)

var htmlType = filetype.NewType("html", "text/html")

func init() {
	filetype.AddMatcher(htmlType, func(buf []byte) bool {
		buf = bytes.TrimLeft(bytes.TrimPrefix(buf, []byte("\xEF\xBB\xBF")), " \t\r\n")
		for _, prefix := range []string{"<!doctype html", "<html", "<head"} {
			if len(buf) >= len(prefix) && strings.EqualFold(string(buf[:len(prefix)]), prefix) {
				return true
			}
		}
		return false
	})
}

// sniffLen is what filetype needs to recognize any supported type.
const sniffLen = 262

func kindOf(name string, head []byte) kind {
	t, err := filetype.Match(head)
	if err != nil {
		t = types.Unknown
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".zip" && t.Extension == "zip":
		return kindArchive
	case ext == ".html" || ext == ".htm" || ext == ".xhtml" || t == htmlType:
		return kindDocument
	case ext == ".css":
		return kindStyleSheet
	}
	return kindUnknown
}

// kindOfFile looks at file name and its first bytes.
func kindOfFile(path string) (kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return kindUnknown, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return kindUnknown, err
	}
	return kindOf(path, head[:n]), nil
}

// isStyleSheetType reports whether media type names CSS.
func isStyleSheetType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/css"
}

// lookupEncoding returns encoding for IANA name or nil when name is unknown or
// unsupported.
func lookupEncoding(name string) encoding.Encoding {
	if len(name) == 0 {
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil
	}
	return enc
}

// charsetRule returns name from leading @charset rule. Rule must be exactly
// `@charset "name";` to be honored.
func charsetRule(data []byte) string {
	const prefix = `@charset "`
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return ""
	}
	rest := data[len(prefix):]
	end := bytes.Index(rest, []byte(`";`))
	if end <= 0 {
		return ""
	}
	return string(rest[:end])
}

// decodeStyleSheet converts stylesheet to UTF-8. Encoding comes from BOM,
// content type charset, @charset rule or referring document, in this order.
// Returned name is the encoding actually used.
func decodeStyleSheet(data []byte, contentType, fallback string) (string, string, error) {
	if bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")) {
		return string(data[3:]), "utf-8", nil
	}
	if label := bomLabel(data); len(label) > 0 {
		if enc, name := charset.Lookup(label); enc != nil {
			return decodeWith(enc, name, data)
		}
	}

	var candidates []string
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		candidates = append(candidates, params["charset"])
	}
	candidates = append(candidates, charsetRule(data), fallback)

	for _, label := range candidates {
		if enc := lookupEncoding(label); enc != nil {
			name, _ := ianaindex.IANA.Name(enc)
			return decodeWith(enc, strings.ToLower(name), data)
		}
	}
	return string(data), "utf-8", nil
}

// decodeDocument converts HTML document to UTF-8 the way browsers determine
// its encoding. Returned name is the encoding linked stylesheets inherit, it
// is empty when nothing pointed to the document encoding.
func decodeDocument(data []byte, contentType string) (string, string, error) {
	enc, name, certain := charset.DetermineEncoding(data, contentType)
	text, name, err := decodeWith(enc, name, data)
	if !certain && name == "windows-1252" {
		// detection fallback, not a declaration
		name = ""
	}
	return text, name, err
}

func bomLabel(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return "utf-16be"
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return "utf-16le"
	}
	return ""
}

func decodeWith(enc encoding.Encoding, name string, data []byte) (string, string, error) {
	if name == "utf-8" && utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))), name, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("unable to decode text as %s: %w", name, err)
	}
	return string(bytes.TrimPrefix(out, []byte("\xEF\xBB\xBF"))), name, nil
}
