package check

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// docSheet is a stylesheet of an HTML document. Index is its position among
// all stylesheets of the document, linked and inline alike.
type docSheet struct {
	Index int
	Href  string
	Text  string
}

func (s docSheet) inline() bool {
	return len(s.Href) == 0
}

// extractStyleSheets returns stylesheets of the document in document order
// and value of the first <base href>, if any.
func extractStyleSheets(doc string) ([]docSheet, string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, "", err
	}

	var (
		sheets []docSheet
		base   string
		visit  func(*html.Node)
	)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Base:
				if href, ok := attr(n, "href"); ok && len(base) == 0 {
					base = href
				}
			case atom.Style:
				if t, ok := attr(n, "type"); !ok || len(t) == 0 || strings.EqualFold(t, "text/css") {
					sheets = append(sheets, docSheet{Index: len(sheets), Text: nodeText(n)})
				}
			case atom.Link:
				href, _ := attr(n, "href")
				if rel, _ := attr(n, "rel"); hasToken(rel, "stylesheet") && len(strings.TrimSpace(href)) > 0 {
					sheets = append(sheets, docSheet{Index: len(sheets), Href: strings.TrimSpace(href)})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return sheets, base, nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// hasToken reports whether space separated list contains token, ignoring case.
func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
