package md2docx

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docbridge/internal/assets"
	"github.com/dgallion1/docbridge/internal/format"
	"github.com/dgallion1/docbridge/internal/rels"
)

// Numbering instances declared in numbering.xml.
const (
	BulletNumID  = 1
	DecimalNumID = 2
	maxListLevel = 8
)

const (
	hrParagraph = `<w:p><w:pPr><w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr></w:pPr></w:p>`
	tableOpen   = `<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="5000" w:type="pct"/></w:tblPr>`
	cellOpen    = `<w:tc><w:tcPr><w:tcW w:w="0" w:type="auto"/></w:tcPr><w:p>`
	breakRun    = `<w:r><w:br/></w:r>`
	textOpen    = `<w:t xml:space="preserve">`
	textClose   = `</w:t>`

	// extentEMU is the fixed 2000000 EMU square every embedded image gets.
	extentEMU = 2000000
)

var errUnbalanced = errors.New("unbalanced span")

// Emitter builds the body of word/document.xml from parse events. At most
// one paragraph and one run are open at any time. Local images are handed
// to the collector; their bytes are read later by the converter.
type Emitter struct {
	buf       strings.Builder
	collector *assets.Collector
	log       *slog.Logger

	inParagraph bool
	inRun       bool
	spans       []format.Mark

	lists        []BlockType
	inListItem   bool
	itemNumbered bool

	tableColumns int
	rowSeen      bool
	headerRow    bool

	inCode bool
	code   strings.Builder
	inHTML bool
}

// NewEmitter returns an Emitter. A nil collector turns every image into its
// alt text.
func NewEmitter(collector *assets.Collector, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Emitter{collector: collector, log: log}
}

// Body returns the document body emitted so far.
func (e *Emitter) Body() string { return e.buf.String() }

func (e *Emitter) ensureParagraph() {
	if !e.inParagraph {
		e.buf.WriteString("<w:p>")
		e.inParagraph = true
	}
}

func (e *Emitter) closeRun() {
	if e.inRun {
		e.buf.WriteString(textClose + "</w:r>")
		e.inRun = false
	}
}

func (e *Emitter) closeParagraph() {
	e.closeRun()
	if e.inParagraph {
		e.buf.WriteString("</w:p>")
		e.inParagraph = false
	}
}

// marks is the formatting of text written now.
func (e *Emitter) marks() format.Set {
	s := format.Of(e.spans...)
	if e.headerRow {
		s = s.With(format.Bold)
	}
	return s
}

func (e *Emitter) writeText(text string) {
	if text == "" {
		return
	}
	e.ensureParagraph()
	if !e.inRun {
		e.buf.WriteString("<w:r>")
		e.buf.WriteString(e.marks().RunProperties())
		e.buf.WriteString(textOpen)
		e.inRun = true
	}
	e.buf.WriteString(Escape(text))
}

// EnterBlock implements Handler.
func (e *Emitter) EnterBlock(t BlockType, d BlockDetail) error {
	switch t {
	case BlockQuote:
		e.ensureParagraph()
	case BlockUL, BlockOL:
		e.closeParagraph()
		e.lists = append(e.lists, t)
	case BlockLI:
		e.closeParagraph()
		e.inListItem = true
		e.itemNumbered = false
	case BlockHR:
		e.closeParagraph()
		e.buf.WriteString(hrParagraph)
	case BlockH:
		e.closeParagraph()
		level := min(max(d.Level, 1), 6)
		fmt.Fprintf(&e.buf, `<w:p><w:pPr><w:pStyle w:val="Heading%d"/></w:pPr>`, level)
		e.inParagraph = true
	case BlockCode:
		e.closeParagraph()
		e.buf.WriteString(`<w:p><w:pPr><w:pStyle w:val="Code"/></w:pPr>`)
		e.inParagraph = true
		e.inCode = true
		e.code.Reset()
	case BlockHTML:
		e.inHTML = true
	case BlockP:
		e.closeParagraph()
		if e.inListItem && !e.itemNumbered && len(e.lists) > 0 {
			numID := BulletNumID
			if e.lists[len(e.lists)-1] == BlockOL {
				numID = DecimalNumID
			}
			level := min(len(e.lists)-1, maxListLevel)
			fmt.Fprintf(&e.buf, `<w:p><w:pPr><w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%d"/></w:numPr></w:pPr>`, level, numID)
			e.itemNumbered = true
		} else {
			e.buf.WriteString("<w:p>")
		}
		e.inParagraph = true
	case BlockTable:
		e.closeParagraph()
		e.tableColumns = max(d.Columns, 1)
		e.rowSeen = false
		e.buf.WriteString(tableOpen)
		e.buf.WriteString("<w:tblGrid>")
		for range e.tableColumns {
			e.buf.WriteString("<w:gridCol/>")
		}
		e.buf.WriteString("</w:tblGrid>")
	case BlockTR:
		e.closeParagraph()
		e.buf.WriteString("<w:tr>")
		e.headerRow = !e.rowSeen
		e.rowSeen = true
	case BlockTH, BlockTD:
		e.closeParagraph()
		e.buf.WriteString(cellOpen)
		e.inParagraph = true
	}
	return nil
}

// LeaveBlock implements Handler.
func (e *Emitter) LeaveBlock(t BlockType, d BlockDetail) error {
	switch t {
	case BlockDoc, BlockQuote, BlockH, BlockP:
		e.closeParagraph()
	case BlockUL, BlockOL:
		e.closeParagraph()
		if len(e.lists) > 0 {
			e.lists = e.lists[:len(e.lists)-1]
		}
	case BlockLI:
		e.closeParagraph()
		e.inListItem = false
	case BlockCode:
		e.flushCode()
		e.closeParagraph()
	case BlockHTML:
		e.inHTML = false
	case BlockTable:
		e.closeParagraph()
		e.buf.WriteString("</w:tbl>")
		e.tableColumns = 0
		e.headerRow = false
	case BlockTR:
		e.closeParagraph()
		e.buf.WriteString("</w:tr>")
		e.headerRow = false
	case BlockTH, BlockTD:
		e.closeParagraph()
		e.buf.WriteString("</w:tc>")
	}
	return nil
}

// flushCode writes the buffered code block as one CodeChar run with its
// lines separated by breaks.
func (e *Emitter) flushCode() {
	e.inCode = false
	text := strings.TrimSuffix(e.code.String(), "\n")
	e.code.Reset()
	e.buf.WriteString("<w:r>")
	e.buf.WriteString(format.Of(format.Code).RunProperties())
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			e.buf.WriteString("<w:br/>")
		}
		e.buf.WriteString(textOpen + Escape(line) + textClose)
	}
	e.buf.WriteString("</w:r>")
}

func spanMark(t SpanType) (format.Mark, bool) {
	switch t {
	case SpanEm:
		return format.Italic, true
	case SpanStrong:
		return format.Bold, true
	case SpanA, SpanU:
		return format.Underline, true
	case SpanCode:
		return format.Code, true
	case SpanDel:
		return format.Strike, true
	}
	return 0, false
}

// EnterSpan implements Handler.
func (e *Emitter) EnterSpan(t SpanType, d SpanDetail) error {
	if e.inHTML || e.inCode {
		return nil
	}
	e.ensureParagraph()
	e.closeRun()
	if t == SpanImg {
		e.image(d)
		return nil
	}
	if m, ok := spanMark(t); ok {
		e.spans = append(e.spans, m)
	}
	return nil
}

// LeaveSpan implements Handler.
func (e *Emitter) LeaveSpan(t SpanType, d SpanDetail) error {
	if e.inHTML || e.inCode || t == SpanImg {
		return nil
	}
	m, ok := spanMark(t)
	if !ok {
		return nil
	}
	if len(e.spans) == 0 || e.spans[len(e.spans)-1] != m {
		return fmt.Errorf("%w: leaving %s", errUnbalanced, t)
	}
	e.closeRun()
	e.spans = e.spans[:len(e.spans)-1]
	return nil
}

// Text implements Handler.
func (e *Emitter) Text(t TextType, text string) error {
	if e.inHTML {
		return nil
	}
	if e.inCode {
		e.code.WriteString(text)
		return nil
	}
	switch t {
	case TextNullChar:
		e.writeText("\uFFFD")
	case TextBreak, TextSoftBreak:
		e.ensureParagraph()
		e.closeRun()
		e.buf.WriteString(breakRun)
	case TextEntity:
		e.writeText(DecodeEntity(text))
	default:
		e.writeText(text)
	}
	return nil
}

func (e *Emitter) image(d SpanDetail) {
	src, local := localImage(d.Dest)
	if !local || e.collector == nil {
		e.log.Debug("image not embedded", "src", d.Dest)
		e.writeText(d.Alt)
		e.closeRun()
		return
	}
	ord := e.collector.Collect(src)
	id := ord + 1
	name := d.Alt
	if name == "" {
		name = fmt.Sprintf("Image%d", id)
	}
	name = Escape(name)
	fmt.Fprintf(&e.buf, `<w:r><w:drawing><wp:inline><wp:extent cx="%d" cy="%d"/>`, extentEMU, extentEMU)
	fmt.Fprintf(&e.buf, `<wp:docPr id="%d" name="%s"/>`, id, name)
	e.buf.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:pic>`)
	fmt.Fprintf(&e.buf, `<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`, id, name)
	fmt.Fprintf(&e.buf, `<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, rels.ImageID(ord))
	fmt.Fprintf(&e.buf, `<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`, extentEMU, extentEMU)
	e.buf.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`)
}

// localImage reports whether dest names a file on disk and returns its
// path. Remote and data URLs are not embedded.
func localImage(dest string) (string, bool) {
	if dest == "" {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil {
		return dest, true
	}
	switch {
	case u.Scheme == "file":
		return u.Path, u.Path != ""
	case len(u.Scheme) > 1:
		return "", false
	}
	return dest, true
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape returns s as XML character data. Characters XML 1.0 cannot carry
// are dropped.
func Escape(s string) string {
	if strings.IndexFunc(s, invalidXMLRune) >= 0 {
		s = strings.Map(func(r rune) rune {
			if invalidXMLRune(r) {
				return -1
			}
			return r
		}, s)
	}
	return xmlEscaper.Replace(s)
}

func invalidXMLRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	}
	return r == 0xFFFE || r == 0xFFFF
}

// DecodeEntity resolves an HTML character reference such as "&amp;" or
// "&#x41;". Unknown references are returned unchanged.
func DecodeEntity(ref string) string {
	switch ref {
	case "&amp;":
		return "&"
	case "&lt;":
		return "<"
	case "&gt;":
		return ">"
	case "&quot;":
		return `"`
	case "&apos;":
		return "'"
	}
	return html.UnescapeString(ref)
}
