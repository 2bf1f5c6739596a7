package docx2md

import (
	"iter"
	"strconv"
	"strings"

	"github.com/dgallion1/docbridge/internal/format"
	"github.com/dgallion1/docbridge/internal/xmltree"
)

// BlockKind is the structural kind of a body child.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockTable
)

// Block is one direct child of w:body.
type Block struct {
	Kind BlockKind
	Node int
}

// BodyChildren yields the paragraphs and tables directly under body in
// document order. Children are matched by parent identity, so a paragraph
// inside a table cell is never yielded at the top level.
func BodyChildren(t *xmltree.Tree, body int) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for _, c := range t.Children(body) {
			n := t.Node(c)
			if n.Kind != xmltree.Element || n.Parent != body {
				continue
			}
			var b Block
			switch n.Name {
			case "w:p":
				b = Block{Kind: BlockParagraph, Node: c}
			case "w:tbl":
				b = Block{Kind: BlockTable, Node: c}
			default:
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

// ParagraphKind classifies a paragraph.
type ParagraphKind int

const (
	Normal ParagraphKind = iota
	Heading
	CodeBlock
	HorizontalRule
)

// Class is a paragraph classification. Level is set for headings only.
type Class struct {
	Kind  ParagraphKind
	Level int
}

// ClassifyParagraph derives the classification of paragraph p from its
// border markup and style reference. A bottom border wins over any style.
func ClassifyParagraph(t *xmltree.Tree, p int) Class {
	ppr := t.FindChild(p, xmltree.Element, "w:pPr")
	if ppr == xmltree.NoNode {
		return Class{Kind: Normal}
	}
	if bdr := t.FindChild(ppr, xmltree.Element, "w:pBdr"); bdr != xmltree.NoNode {
		if t.FindChild(bdr, xmltree.Element, "w:bottom") != xmltree.NoNode {
			return Class{Kind: HorizontalRule}
		}
	}
	return classifyStyle(paragraphStyle(t, ppr))
}

func paragraphStyle(t *xmltree.Tree, ppr int) string {
	st := t.FindChild(ppr, xmltree.Element, "w:pStyle")
	if st == xmltree.NoNode {
		return ""
	}
	v, _ := t.Attr(st, "w:val")
	return v
}

func classifyStyle(style string) Class {
	if style == "Code" {
		return Class{Kind: CodeBlock}
	}
	if lvl, ok := strings.CutPrefix(style, "Heading"); ok && len(lvl) == 1 {
		if n := int(lvl[0] - '0'); n >= 1 && n <= 6 {
			return Class{Kind: Heading, Level: n}
		}
	}
	return Class{Kind: Normal}
}

// ListRef is the numbering reference of a list paragraph.
type ListRef struct {
	NumID int
	Level int // 0-based w:ilvl
}

// ParagraphList returns the numbering reference of p, if it has one.
func ParagraphList(t *xmltree.Tree, p int) (ListRef, bool) {
	ppr := t.FindChild(p, xmltree.Element, "w:pPr")
	if ppr == xmltree.NoNode {
		return ListRef{}, false
	}
	num := t.FindChild(ppr, xmltree.Element, "w:numPr")
	if num == xmltree.NoNode {
		return ListRef{}, false
	}
	ref := ListRef{}
	if id := t.FindChild(num, xmltree.Element, "w:numId"); id != xmltree.NoNode {
		v, _ := t.Attr(id, "w:val")
		ref.NumID, _ = strconv.Atoi(v)
	}
	if ref.NumID == 0 {
		// numId 0 removes numbering.
		return ListRef{}, false
	}
	if lvl := t.FindChild(num, xmltree.Element, "w:ilvl"); lvl != xmltree.NoNode {
		v, _ := t.Attr(lvl, "w:val")
		ref.Level, _ = strconv.Atoi(v)
	}
	ref.Level = min(max(ref.Level, 0), 8)
	return ref, true
}

// ParagraphRuns yields the runs of p in order, including runs wrapped in
// hyperlinks.
func ParagraphRuns(t *xmltree.Tree, p int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for c := range t.ChildElements(p, "") {
			switch t.Node(c).Name {
			case "w:r":
				if !yield(c) {
					return
				}
			case "w:hyperlink":
				for r := range t.ChildElements(c, "w:r") {
					if !yield(r) {
						return
					}
				}
			}
		}
	}
}

// ImageRef points at an embedded picture.
type ImageRef struct {
	RelID string
	Alt   string
	// Link is the Markdown destination, set once the image is resolved.
	// Unresolved images emit nothing.
	Link string
}

// Run is the content of one w:r.
type Run struct {
	Marks format.Set
	// Text holds the run text in order; breaks between text chunks appear
	// as "\n".
	Text string
	// Break is set when the run ends with a line break.
	Break bool
	Image *ImageRef
}

// Empty reports whether the run produces no output.
func (r Run) Empty() bool {
	return r.Text == "" && !r.Break && r.Image == nil
}

// ExtractRun reads the formatting, text, break and drawing of run r.
func ExtractRun(t *xmltree.Tree, r int) Run {
	var run Run
	if rpr := t.FindChild(r, xmltree.Element, "w:rPr"); rpr != xmltree.NoNode {
		run.Marks = runMarks(t, rpr)
	}

	var sb strings.Builder
	pendingBreak := false
	for c := range t.ChildElements(r, "") {
		switch t.Node(c).Name {
		case "w:t":
			if pendingBreak {
				sb.WriteByte('\n')
				pendingBreak = false
			}
			sb.WriteString(t.Text(c))
		case "w:tab":
			if pendingBreak {
				sb.WriteByte('\n')
				pendingBreak = false
			}
			sb.WriteByte('\t')
		case "w:br", "w:cr":
			if pendingBreak {
				sb.WriteByte('\n')
			}
			pendingBreak = true
		case "w:drawing":
			if run.Image == nil {
				run.Image = drawingImage(t, c)
			}
		}
	}
	run.Text = sb.String()
	run.Break = pendingBreak
	return run
}

func runMarks(t *xmltree.Tree, rpr int) format.Set {
	var s format.Set
	for c := range t.ChildElements(rpr, "") {
		switch t.Node(c).Name {
		case "w:b":
			if enabled(t, c) {
				s = s.With(format.Bold)
			}
		case "w:i":
			if enabled(t, c) {
				s = s.With(format.Italic)
			}
		case "w:strike", "w:dstrike":
			if enabled(t, c) {
				s = s.With(format.Strike)
			}
		case "w:u":
			if v, ok := t.Attr(c, "w:val"); !ok || v != "none" {
				s = s.With(format.Underline)
			}
		case "w:rStyle":
			if v, _ := t.Attr(c, "w:val"); v == "CodeChar" {
				s = s.With(format.Code)
			}
		}
	}
	return s
}

// enabled reports whether a toggle property is on. A missing w:val means on.
func enabled(t *xmltree.Tree, prop int) bool {
	v, ok := t.Attr(prop, "w:val")
	if !ok {
		return true
	}
	switch v {
	case "0", "false", "off":
		return false
	}
	return true
}

func drawingImage(t *xmltree.Tree, drawing int) *ImageRef {
	blip := t.FindElement(drawing, "a:blip")
	if blip == xmltree.NoNode {
		return nil
	}
	id, ok := t.Attr(blip, "r:embed")
	if !ok || id == "" {
		return nil
	}
	ref := &ImageRef{RelID: id, Alt: "Image"}
	if pr := t.FindElement(drawing, "wp:docPr"); pr != xmltree.NoNode {
		if name, ok := t.Attr(pr, "name"); ok && name != "" {
			ref.Alt = name
		}
	}
	return ref
}

// TableRows returns the cells of tbl as rows of cell nodes.
func TableRows(t *xmltree.Tree, tbl int) [][]int {
	var rows [][]int
	for tr := range t.ChildElements(tbl, "w:tr") {
		var cells []int
		for tc := range t.ChildElements(tr, "w:tc") {
			cells = append(cells, tc)
		}
		rows = append(rows, cells)
	}
	return rows
}
