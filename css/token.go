package css

import "fmt"

// Kind classifies a token for the rule parser.
type Kind int

const (
	KindOther      Kind = iota // anything the rule parser does not care about
	KindIdent                  // identifiers, including custom property names
	KindAtKeyword              // @media, @font-face, ...
	KindPunct                  // { } ; :
	KindWhitespace             // spaces, tabs, new lines
	KindComment                // /* ... */
	KindString                 // quoted string
	KindURL                    // unquoted url(...)
)

func (k Kind) String() string {
	switch k {
	case KindIdent:
		return "ident"
	case KindAtKeyword:
		return "at-keyword"
	case KindPunct:
		return "punct"
	case KindWhitespace:
		return "whitespace"
	case KindComment:
		return "comment"
	case KindString:
		return "string"
	case KindURL:
		return "url"
	default:
		return "other"
	}
}

// Token is a single lexeme of the stylesheet. Text is a substring of the
// source, Start and End are byte offsets into it. Line and Column are
// 1-based, Column counts runes.
type Token struct {
	Kind   Kind
	Text   string
	Start  int
	End    int
	Line   int
	Column int
}

// Is reports whether token is punctuation with the given text.
func (t Token) Is(punct string) bool {
	return t.Kind == KindPunct && t.Text == punct
}

// Significant reports whether token carries meaning for the rule parser.
func (t Token) Significant() bool {
	return t.Kind != KindWhitespace && t.Kind != KindComment
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q (%d:%d)", t.Kind, t.Text, t.Line, t.Column)
}

// Position is a location in the stylesheet source.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Location formats position as line:column.
func (p Position) Location() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Pos returns token starting position.
func (t Token) Pos() Position {
	return Position{Offset: t.Start, Line: t.Line, Column: t.Column}
}
