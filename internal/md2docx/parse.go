package md2docx

import (
	"fmt"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/dgallion1/docbridge/internal/docerr"
)

// entityRef matches HTML character references inside raw text.
var entityRef = regexp.MustCompile(`&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)

// Parse parses src with goldmark and replays the document to h as a stream
// of enter/leave/text events in document order.
func Parse(src []byte, ext Extensions, h Handler) error {
	var exts []goldmark.Extender
	if ext.Tables {
		exts = append(exts, extension.Table)
	}
	if ext.Strikethrough {
		exts = append(exts, extension.Strikethrough)
	}
	if ext.TaskLists {
		exts = append(exts, extension.TaskList)
	}
	if ext.Autolinks {
		exts = append(exts, extension.Linkify)
	}
	md := goldmark.New(goldmark.WithExtensions(exts...))
	doc := md.Parser().Parse(text.NewReader(src))

	a := &adapter{src: src, ext: ext, h: h}
	if err := ast.Walk(doc, a.visit); err != nil {
		return docerr.MarkdownParse("parse markdown", err)
	}
	return nil
}

type adapter struct {
	src []byte
	ext Extensions
	h   Handler

	inTBody bool
}

func (a *adapter) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := n.(type) {
	case *ast.Document:
		return a.block(BlockDoc, BlockDetail{}, entering)

	case *ast.Blockquote:
		return a.block(BlockQuote, BlockDetail{}, entering)

	case *ast.List:
		d := BlockDetail{Start: n.Start, Tight: n.IsTight}
		if n.IsOrdered() {
			return a.block(BlockOL, d, entering)
		}
		return a.block(BlockUL, d, entering)

	case *ast.ListItem:
		return a.block(BlockLI, BlockDetail{}, entering)

	case *ast.ThematicBreak:
		return a.block(BlockHR, BlockDetail{}, entering)

	case *ast.Heading:
		return a.block(BlockH, BlockDetail{Level: n.Level}, entering)

	case *ast.Paragraph, *ast.TextBlock:
		return a.block(BlockP, BlockDetail{}, entering)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if !entering {
			return a.block(BlockCode, BlockDetail{}, false)
		}
		if _, err := a.block(BlockCode, BlockDetail{}, true); err != nil {
			return ast.WalkStop, err
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if err := a.h.Text(TextCode, string(seg.Value(a.src))); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkContinue, nil

	case *ast.HTMLBlock:
		if _, err := a.block(BlockHTML, BlockDetail{}, entering); err != nil {
			return ast.WalkStop, err
		}
		return ast.WalkSkipChildren, nil

	case *extast.Table:
		if entering {
			a.inTBody = false
			return a.block(BlockTable, BlockDetail{Columns: len(n.Alignments)}, true)
		}
		if a.inTBody {
			a.inTBody = false
			if err := a.h.LeaveBlock(BlockTBody, BlockDetail{}); err != nil {
				return ast.WalkStop, err
			}
		}
		return a.block(BlockTable, BlockDetail{Columns: len(n.Alignments)}, false)

	case *extast.TableHeader:
		// goldmark puts header cells directly under the header node.
		if entering {
			if err := a.h.EnterBlock(BlockTHead, BlockDetail{}); err != nil {
				return ast.WalkStop, err
			}
			return a.block(BlockTR, BlockDetail{}, true)
		}
		if err := a.h.LeaveBlock(BlockTR, BlockDetail{}); err != nil {
			return ast.WalkStop, err
		}
		return a.block(BlockTHead, BlockDetail{}, false)

	case *extast.TableRow:
		if entering && !a.inTBody {
			a.inTBody = true
			if err := a.h.EnterBlock(BlockTBody, BlockDetail{}); err != nil {
				return ast.WalkStop, err
			}
		}
		return a.block(BlockTR, BlockDetail{}, entering)

	case *extast.TableCell:
		if _, ok := n.Parent().(*extast.TableHeader); ok {
			return a.block(BlockTH, BlockDetail{}, entering)
		}
		return a.block(BlockTD, BlockDetail{}, entering)

	case *ast.Text:
		if !entering {
			return ast.WalkContinue, nil
		}
		return a.text(n)

	case *ast.String:
		if !entering {
			return ast.WalkContinue, nil
		}
		return ast.WalkContinue, a.h.Text(TextNormal, string(n.Value))

	case *ast.Emphasis:
		st := SpanStrong
		if n.Level == 1 {
			st = SpanEm
			if a.ext.Underline && a.underscoreDelimited(n) {
				st = SpanU
			}
		}
		return a.span(st, SpanDetail{}, entering)

	case *extast.Strikethrough:
		return a.span(SpanDel, SpanDetail{}, entering)

	case *ast.CodeSpan:
		if !entering {
			return a.span(SpanCode, SpanDetail{}, false)
		}
		if _, err := a.span(SpanCode, SpanDetail{}, true); err != nil {
			return ast.WalkStop, err
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			var value []byte
			switch t := c.(type) {
			case *ast.Text:
				value = t.Segment.Value(a.src)
				if l := len(value); l > 0 && value[l-1] == '\n' {
					value = append(value[:l-1:l-1], ' ')
				}
			case *ast.String:
				value = t.Value
			}
			if err := a.h.Text(TextCode, string(value)); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.Link:
		return a.span(SpanA, SpanDetail{Dest: string(n.Destination), Title: string(n.Title)}, entering)

	case *ast.AutoLink:
		if !entering {
			return ast.WalkContinue, nil
		}
		d := SpanDetail{Dest: string(n.URL(a.src))}
		if n.AutoLinkType == ast.AutoLinkEmail {
			d.Dest = "mailto:" + d.Dest
		}
		if err := a.h.EnterSpan(SpanA, d); err != nil {
			return ast.WalkStop, err
		}
		if err := a.h.Text(TextNormal, string(n.Label(a.src))); err != nil {
			return ast.WalkStop, err
		}
		return ast.WalkSkipChildren, a.h.LeaveSpan(SpanA, d)

	case *ast.Image:
		if !entering {
			return ast.WalkContinue, nil
		}
		d := SpanDetail{Dest: string(n.Destination), Title: string(n.Title), Alt: plainText(n, a.src)}
		if err := a.h.EnterSpan(SpanImg, d); err != nil {
			return ast.WalkStop, err
		}
		// Alt text travels in the detail, not as text events.
		return ast.WalkSkipChildren, a.h.LeaveSpan(SpanImg, d)

	case *ast.RawHTML:
		if !entering {
			return ast.WalkContinue, nil
		}
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			if err := a.h.Text(TextHTML, string(seg.Value(a.src))); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkSkipChildren, nil

	case *extast.TaskCheckBox:
		if !entering {
			return ast.WalkContinue, nil
		}
		box := "[ ] "
		if n.IsChecked {
			box = "[x] "
		}
		return ast.WalkContinue, a.h.Text(TextNormal, box)
	}
	return ast.WalkContinue, nil
}

func (a *adapter) block(t BlockType, d BlockDetail, entering bool) (ast.WalkStatus, error) {
	var err error
	if entering {
		err = a.h.EnterBlock(t, d)
	} else {
		err = a.h.LeaveBlock(t, d)
	}
	if err != nil {
		return ast.WalkStop, fmt.Errorf("%s block: %w", t, err)
	}
	return ast.WalkContinue, nil
}

func (a *adapter) span(t SpanType, d SpanDetail, entering bool) (ast.WalkStatus, error) {
	var err error
	if entering {
		err = a.h.EnterSpan(t, d)
	} else {
		err = a.h.LeaveSpan(t, d)
	}
	if err != nil {
		return ast.WalkStop, fmt.Errorf("%s span: %w", t, err)
	}
	return ast.WalkContinue, nil
}

// text replays a goldmark text segment. Segments are raw source, so
// backslash escapes are resolved here and character references are split
// out as entity events.
func (a *adapter) text(n *ast.Text) (ast.WalkStatus, error) {
	value := n.Segment.Value(a.src)
	if n.IsRaw() {
		if err := a.h.Text(TextNormal, string(value)); err != nil {
			return ast.WalkStop, err
		}
	} else {
		last := 0
		for _, loc := range entityRef.FindAllIndex(value, -1) {
			if loc[0] > 0 && value[loc[0]-1] == '\\' {
				continue
			}
			if err := a.plain(value[last:loc[0]]); err != nil {
				return ast.WalkStop, err
			}
			if err := a.h.Text(TextEntity, string(value[loc[0]:loc[1]])); err != nil {
				return ast.WalkStop, err
			}
			last = loc[1]
		}
		if err := a.plain(value[last:]); err != nil {
			return ast.WalkStop, err
		}
	}

	switch {
	case n.HardLineBreak():
		return ast.WalkContinue, a.h.Text(TextBreak, "\n")
	case n.SoftLineBreak():
		return ast.WalkContinue, a.h.Text(TextSoftBreak, "\n")
	}
	return ast.WalkContinue, nil
}

func (a *adapter) plain(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return a.h.Text(TextNormal, string(util.UnescapePunctuations(b)))
}

// underscoreDelimited reports whether emphasis n was written with '_'.
// goldmark keeps no delimiter on the node, so the source is inspected just
// before the first text inside it. Emphasis nested inside n that opens at
// the same text owns the delimiters nearest to it, so those are skipped
// before the one belonging to n is read.
func (a *adapter) underscoreDelimited(n *ast.Emphasis) bool {
	start := firstTextStart(n)
	if start <= 0 {
		return false
	}
	skip := innerDelimiters(n)
	for i := start - 1; i >= 0; i-- {
		switch c := a.src[i]; c {
		case '~', '[', '`':
		case '*', '_':
			if skip > 0 {
				skip--
				continue
			}
			return c == '_'
		default:
			return false
		}
	}
	return false
}

// innerDelimiters counts the opening delimiter characters of the emphasis
// nodes on the leading path from n down to its first text.
func innerDelimiters(n ast.Node) int {
	count := 0
	for c := n.FirstChild(); c != nil; c = c.FirstChild() {
		if _, ok := c.(*ast.Text); ok {
			return count
		}
		if e, ok := c.(*ast.Emphasis); ok {
			count += e.Level
		}
	}
	return count
}

func firstTextStart(n ast.Node) int {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			return t.Segment.Start
		}
		if s := firstTextStart(c); s >= 0 {
			return s
		}
	}
	return -1
}

// plainText concatenates the text below n, used for image alt text.
func plainText(n ast.Node, src []byte) string {
	var out []byte
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			out = append(out, util.UnescapePunctuations(t.Segment.Value(src))...)
			if t.SoftLineBreak() {
				out = append(out, ' ')
			}
		case *ast.String:
			out = append(out, t.Value...)
		}
		return ast.WalkContinue, nil
	})
	return string(util.ResolveEntityNames(util.ResolveNumericReferences(out)))
}
