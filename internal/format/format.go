// Package format is the inline formatting vocabulary shared by both
// conversion directions.
package format

import "strings"

// Mark is one inline formatting mark.
type Mark uint8

const (
	Strike Mark = 1 << iota
	Bold
	Italic
	Code
	Underline
)

// openOrder is the order marks open in. They close in reverse.
var openOrder = [...]Mark{Strike, Bold, Italic, Code, Underline}

// OpenOrder returns the marks in opening order.
func OpenOrder() []Mark {
	out := make([]Mark, len(openOrder))
	copy(out, openOrder[:])
	return out
}

func (m Mark) String() string {
	switch m {
	case Strike:
		return "strike"
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Code:
		return "code"
	case Underline:
		return "underline"
	}
	return "none"
}

// Marker returns the Markdown delimiter for m. Underline has no
// CommonMark delimiter and yields "".
func (m Mark) Marker() string {
	switch m {
	case Strike:
		return "~~"
	case Bold:
		return "**"
	case Italic:
		return "*"
	case Code:
		return "`"
	}
	return ""
}

// RunProperty returns the w:rPr child element that carries m.
func (m Mark) RunProperty() string {
	switch m {
	case Strike:
		return `<w:strike/>`
	case Bold:
		return `<w:b/>`
	case Italic:
		return `<w:i/>`
	case Code:
		return `<w:rStyle w:val="CodeChar"/>`
	case Underline:
		return `<w:u w:val="single"/>`
	}
	return ""
}

// Set is a set of active marks.
type Set uint8

// Of builds a Set from marks.
func Of(marks ...Mark) Set {
	var s Set
	for _, m := range marks {
		s = s.With(m)
	}
	return s
}

func (s Set) Has(m Mark) bool { return s&Set(m) != 0 }
func (s Set) With(m Mark) Set { return s | Set(m) }
func (s Set) Without(m Mark) Set { return s &^ Set(m) }
func (s Set) Empty() bool { return s == 0 }
func (s Set) Union(other Set) Set { return s | other }

// Diff returns the marks to open and to close when moving from old to next.
// toOpen follows the opening order, toClose its mirror.
func Diff(old, next Set) (toOpen, toClose []Mark) {
	for _, m := range openOrder {
		if next.Has(m) && !old.Has(m) {
			toOpen = append(toOpen, m)
		}
	}
	for i := len(openOrder) - 1; i >= 0; i-- {
		m := openOrder[i]
		if old.Has(m) && !next.Has(m) {
			toClose = append(toClose, m)
		}
	}
	return toOpen, toClose
}

// Wrap surrounds text with the Markdown markers of s, opening in order and
// closing in mirror order so the result is always balanced.
func Wrap(s Set, text string) string {
	toOpen, _ := Diff(0, s)
	_, toClose := Diff(s, 0)
	var sb strings.Builder
	for _, m := range toOpen {
		sb.WriteString(m.Marker())
	}
	sb.WriteString(text)
	for _, m := range toClose {
		sb.WriteString(m.Marker())
	}
	return sb.String()
}

// rPrOrder is the schema order of run properties inside w:rPr.
var rPrOrder = [...]Mark{Code, Bold, Italic, Strike, Underline}

// RunProperties returns a w:rPr element for s, or "" when s is empty.
func (s Set) RunProperties() string {
	if s.Empty() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<w:rPr>")
	for _, m := range rPrOrder {
		if s.Has(m) {
			sb.WriteString(m.RunProperty())
		}
	}
	sb.WriteString("</w:rPr>")
	return sb.String()
}
