package md2docx

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docbridge/internal/rels"
)

// Part names written into every generated package.
const (
	ContentTypesPart = "[Content_Types].xml"
	RootRelsPart     = "_rels/.rels"
	DocumentPart     = "word/document.xml"
	StylesPart       = "word/styles.xml"
	NumberingPart    = "word/numbering.xml"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const documentOpen = `<w:document xmlns:w="` + wordNS + `" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
	`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<w:body>`

// DocumentXML wraps an emitted body into word/document.xml.
func DocumentXML(body string) []byte {
	var sb strings.Builder
	sb.Grow(len(rels.Header) + len(documentOpen) + len(body) + 32)
	sb.WriteString(rels.Header)
	sb.WriteString(documentOpen)
	sb.WriteString(body)
	sb.WriteString(`</w:body></w:document>`)
	return []byte(sb.String())
}

// RootRelsXML points the package at its main document.
func RootRelsXML() []byte {
	t := rels.New()
	t.Register("rId1", DocumentPart, rels.TypeOfficeDocument)
	return t.Marshal()
}

const stylesXML = rels.Header +
	`<w:styles xmlns:w="` + wordNS + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/><w:sz w:val="22"/></w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="480" w:after="0"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="200" w:after="0"/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="200" w:after="0"/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading4"><w:name w:val="heading 4"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:outlineLvl w:val="3"/></w:pPr><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading5"><w:name w:val="heading 5"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:outlineLvl w:val="4"/></w:pPr><w:rPr><w:b/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading6"><w:name w:val="heading 6"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:outlineLvl w:val="5"/></w:pPr><w:rPr><w:b/><w:i/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Code"><w:name w:val="Code"/><w:basedOn w:val="Normal"/><w:rPr><w:rFonts w:ascii="Courier New" w:hAnsi="Courier New"/><w:sz w:val="20"/></w:rPr></w:style>` +
	`<w:style w:type="character" w:styleId="CodeChar"><w:name w:val="Code Char"/><w:rPr><w:rFonts w:ascii="Courier New" w:hAnsi="Courier New"/></w:rPr></w:style>` +
	`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:tblPr><w:tblBorders>` +
	`<w:top w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:left w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:right w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="auto"/><w:insideV w:val="single" w:sz="4" w:space="0" w:color="auto"/>` +
	`</w:tblBorders></w:tblPr></w:style>` +
	`</w:styles>`

// StylesXML returns word/styles.xml.
func StylesXML() []byte { return []byte(stylesXML) }

// bulletGlyphs cycle through the nine bullet levels.
var bulletGlyphs = [...]string{"•", "◦", "▪"}

// NumberingXML returns word/numbering.xml with a bullet definition
// (BulletNumID) and a decimal definition (DecimalNumID), nine levels each.
func NumberingXML() []byte {
	var sb strings.Builder
	sb.WriteString(rels.Header)
	sb.WriteString(`<w:numbering xmlns:w="` + wordNS + `">`)

	sb.WriteString(`<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for lvl := 0; lvl <= maxListLevel; lvl++ {
		fmt.Fprintf(&sb, `<w:lvl w:ilvl="%d"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="%s"/><w:lvlJc w:val="left"/>`,
			lvl, bulletGlyphs[lvl%len(bulletGlyphs)])
		fmt.Fprintf(&sb, `<w:pPr><w:ind w:left="%d" w:hanging="360"/></w:pPr></w:lvl>`, 720*(lvl+1))
	}
	sb.WriteString(`</w:abstractNum>`)

	sb.WriteString(`<w:abstractNum w:abstractNumId="1"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for lvl := 0; lvl <= maxListLevel; lvl++ {
		fmt.Fprintf(&sb, `<w:lvl w:ilvl="%d"><w:start w:val="1"/><w:numFmt w:val="decimal"/><w:lvlText w:val="%%%d."/><w:lvlJc w:val="left"/>`,
			lvl, lvl+1)
		fmt.Fprintf(&sb, `<w:pPr><w:ind w:left="%d" w:hanging="360"/></w:pPr></w:lvl>`, 720*(lvl+1))
	}
	sb.WriteString(`</w:abstractNum>`)

	fmt.Fprintf(&sb, `<w:num w:numId="%d"><w:abstractNumId w:val="0"/></w:num>`, BulletNumID)
	fmt.Fprintf(&sb, `<w:num w:numId="%d"><w:abstractNumId w:val="1"/></w:num>`, DecimalNumID)
	sb.WriteString(`</w:numbering>`)
	return []byte(sb.String())
}
