// Package doctxt extracts plain text from Word and PDF documents.
package doctxt

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docbridge/internal/archive"
	"github.com/dgallion1/docbridge/internal/docerr"
	"github.com/dgallion1/docbridge/internal/xmltree"
)

// Part names read by the extractor.
const (
	DocumentPart = "word/document.xml"
	CommentsPart = "word/comments.xml"
)

// ExtractText returns the text of every body paragraph, one line each, and
// every table row with its cells separated by tabs, in document order.
func ExtractText(r io.ReaderAt, size int64) (string, error) {
	ar, err := archive.NewReader(r, size)
	if err != nil {
		return "", err
	}
	defer ar.Close()
	if !ar.Has(DocumentPart) {
		return "", docerr.EntryMissing("extract text", DocumentPart, os.ErrNotExist)
	}

	doc, err := docx.Parse(r, size)
	if err != nil {
		return "", docerr.New(docerr.KindMalformed, "parse", DocumentPart, err)
	}

	var buf strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			buf.WriteString(paragraphText(it))
			buf.WriteByte('\n')
		case *docx.Table:
			writeTable(&buf, it)
		}
	}
	return buf.String(), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(&buf, c)
		case *docx.Hyperlink:
			writeRun(&buf, &c.Run)
		}
	}
	return buf.String()
}

func writeRun(buf *strings.Builder, run *docx.Run) {
	for _, rc := range run.Children {
		switch c := rc.(type) {
		case *docx.Text:
			buf.WriteString(c.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		}
	}
}

func writeTable(buf *strings.Builder, tbl *docx.Table) {
	for _, row := range tbl.TableRows {
		for i, cell := range row.TableCells {
			if i > 0 {
				buf.WriteByte('\t')
			}
			for j, para := range cell.Paragraphs {
				if j > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(paragraphText(para))
			}
		}
		buf.WriteByte('\n')
	}
}

// ExtractComments returns one line per comment, "[author]: text". A package
// without a comments part yields an empty string.
func ExtractComments(r io.ReaderAt, size int64) (string, error) {
	ar, err := archive.NewReader(r, size)
	if err != nil {
		return "", err
	}
	defer ar.Close()
	if !ar.Has(CommentsPart) {
		return "", nil
	}
	data, err := ar.Extract(CommentsPart)
	if err != nil {
		return "", err
	}
	tree, err := xmltree.ParseBytes(data)
	if err != nil {
		return "", docerr.New(docerr.KindMalformed, "parse", CommentsPart, err)
	}
	root := tree.Root()
	if tree.Node(root).Name != "w:comments" {
		root = tree.FindElement(root, "w:comments")
		if root == xmltree.NoNode {
			return "", nil
		}
	}

	var buf strings.Builder
	for c := range tree.ChildElements(root, "w:comment") {
		author, ok := tree.Attr(c, "w:author")
		if !ok || author == "" {
			author = "Unknown"
		}
		fmt.Fprintf(&buf, "[%s]: ", author)
		for p := range tree.ChildElements(c, "w:p") {
			writeTextNodes(&buf, tree, p)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// writeTextNodes appends every w:t below n in document order.
func writeTextNodes(buf *strings.Builder, tree *xmltree.Tree, n int) {
	for _, c := range tree.Children(n) {
		node := tree.Node(c)
		if node.Kind != xmltree.Element {
			continue
		}
		if node.Name == "w:t" {
			buf.WriteString(tree.Text(c))
			continue
		}
		writeTextNodes(buf, tree, c)
	}
}

// ExtractPDF returns the plain text of the PDF at path with pages separated
// by form feeds. When the library cannot read the file and fallback is set,
// pdftotext is tried.
func ExtractPDF(path string, fallback bool) (string, error) {
	text, err := extractPDFText(path)
	if err != nil && fallback {
		text, err = extractPdftotext(path)
	}
	if err != nil {
		return "", docerr.New(docerr.KindMalformed, "extract pdf", path, err)
	}
	return text, nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// Options selects what ExtractFile reads.
type Options struct {
	Comments    bool
	PDFFallback bool
}

// ExtractFile extracts text from the file at path, choosing PDF or Word
// handling by extension.
func ExtractFile(path string, opts Options) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ExtractPDF(path, opts.PDFFallback)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", docerr.EntryMissing("read", path, err)
	}
	r := bytes.NewReader(data)
	if opts.Comments {
		return ExtractComments(r, int64(len(data)))
	}
	return ExtractText(r, int64(len(data)))
}
