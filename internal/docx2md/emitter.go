package docx2md

import (
	"strings"
	"unicode"

	"github.com/dgallion1/docbridge/internal/format"
)

// separatorCell is one dash cell of a table separator row.
const separatorCell = "---------|"

// ListItem describes a numbered paragraph.
type ListItem struct {
	Level   int // 0-based nesting depth
	Ordered bool
}

// Paragraph is a classified paragraph ready for emission.
type Paragraph struct {
	Class Class
	List  *ListItem
	// Styled is set when the paragraph carried a style reference.
	Styled bool
	// HasRuns is set when the paragraph had at least one w:r, even empty.
	HasRuns bool
	Runs    []Run
}

// Cell is one table cell: the runs of each of its paragraphs.
type Cell [][]Run

type inlineMode int

const (
	inlineBlock inlineMode = iota
	inlineFlat             // headings: breaks become spaces
	inlineCell             // table cells: flat, pipes escaped
)

// Emitter accumulates Markdown text.
type Emitter struct {
	out strings.Builder

	inList     bool
	listWidths []int // marker width of the latest item at each level
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// String returns the Markdown written so far.
func (e *Emitter) String() string { return e.out.String() }

// Finish closes any open list.
func (e *Emitter) Finish() {
	e.endList()
}

func (e *Emitter) endList() {
	if !e.inList {
		return
	}
	e.out.WriteByte('\n')
	e.inList = false
	e.listWidths = e.listWidths[:0]
}

// Paragraph writes one paragraph according to its classification.
func (e *Emitter) Paragraph(p Paragraph) {
	switch p.Class.Kind {
	case HorizontalRule:
		e.HorizontalRule()
		return
	case CodeBlock:
		e.CodeBlock(p.Runs)
		return
	case Heading:
		e.endList()
		e.out.WriteString(strings.Repeat("#", p.Class.Level))
		e.out.WriteByte(' ')
		e.runs(p.Runs, inlineFlat)
		e.out.WriteString("\n\n")
		return
	}

	if p.List != nil {
		e.listItem(*p.List, p.Runs)
		return
	}
	e.endList()
	e.runs(p.Runs, inlineBlock)
	if p.HasRuns || p.Styled {
		e.out.WriteString("\n\n")
	}
}

// HorizontalRule writes a thematic break.
func (e *Emitter) HorizontalRule() {
	e.endList()
	e.out.WriteString("---\n\n")
}

// CodeBlock writes the text of runs as a fenced block, ignoring marks.
func (e *Emitter) CodeBlock(runs []Run) {
	e.endList()
	e.out.WriteString("```\n")
	for _, r := range runs {
		e.out.WriteString(r.Text)
		if r.Break {
			e.out.WriteByte('\n')
		}
	}
	e.out.WriteString("\n```\n\n")
}

func (e *Emitter) listItem(item ListItem, runs []Run) {
	if !hasContent(runs) {
		return
	}
	if len(e.listWidths) > item.Level {
		e.listWidths = e.listWidths[:item.Level]
	}
	for len(e.listWidths) < item.Level {
		e.listWidths = append(e.listWidths, 2)
	}
	indent := 0
	for _, w := range e.listWidths {
		indent += w
	}
	marker := "- "
	if item.Ordered {
		marker = "1. "
	}
	e.listWidths = append(e.listWidths, len(marker))

	e.out.WriteString(strings.Repeat(" ", indent))
	e.out.WriteString(marker)
	e.runs(runs, inlineFlat)
	e.out.WriteByte('\n')
	e.inList = true
}

func hasContent(runs []Run) bool {
	for _, r := range runs {
		if !r.Empty() {
			return true
		}
	}
	return false
}

func (e *Emitter) runs(runs []Run, mode inlineMode) {
	for _, r := range runs {
		e.run(r, mode)
	}
}

// Run writes one run. Markers open and close within the run, so the output
// is balanced no matter what the neighbouring runs carry.
func (e *Emitter) Run(r Run) {
	e.run(r, inlineBlock)
}

func (e *Emitter) run(r Run, mode inlineMode) {
	if r.Image != nil {
		if r.Image.Link != "" {
			e.Image(r.Image.Alt, r.Image.Link)
		}
		return
	}
	if r.Empty() {
		return
	}

	text := r.Text
	brk := "  \n"
	if mode != inlineBlock {
		text = strings.ReplaceAll(text, "\n", " ")
		brk = " "
	} else {
		text = strings.ReplaceAll(text, "\n", "  \n")
	}
	if mode == inlineCell {
		text = strings.ReplaceAll(text, "|", `\|`)
	}

	marks := r.Marks.Without(format.Underline)
	if marks.Empty() {
		e.out.WriteString(text)
	} else {
		// Delimiters must hug non-space text to stay valid emphasis.
		core := strings.TrimFunc(text, unicode.IsSpace)
		if core == "" {
			e.out.WriteString(text)
		} else {
			lead := text[:strings.Index(text, core)]
			trail := text[len(lead)+len(core):]
			e.out.WriteString(lead)
			e.out.WriteString(format.Wrap(marks, core))
			e.out.WriteString(trail)
		}
	}
	if r.Break {
		e.out.WriteString(brk)
	}
}

// Image writes an image reference.
func (e *Emitter) Image(alt, link string) {
	e.out.WriteString("![")
	e.out.WriteString(alt)
	e.out.WriteString("](")
	if strings.ContainsAny(link, " ()<>") {
		link = "<" + link + ">"
	}
	e.out.WriteString(link)
	e.out.WriteByte(')')
}

// Table writes rows as a pipe table. The separator row follows the first
// row and is as wide as the first row, whatever the later rows hold.
func (e *Emitter) Table(rows [][]Cell) {
	if len(rows) == 0 {
		return
	}
	e.endList()
	cols := len(rows[0])
	for i, row := range rows {
		e.out.WriteByte('|')
		for _, cell := range row {
			e.out.WriteByte(' ')
			for j, para := range cell {
				if j > 0 {
					e.out.WriteByte(' ')
				}
				e.runs(para, inlineCell)
			}
			e.out.WriteString(" |")
		}
		e.out.WriteByte('\n')
		if i == 0 {
			e.out.WriteByte('|')
			e.out.WriteString(strings.Repeat(separatorCell, cols))
			e.out.WriteByte('\n')
		}
	}
	e.out.WriteByte('\n')
}
