package docx2md

// Shared test helpers for the docx2md package.

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docbridge/internal/archive"
)

const docNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
	`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"`

// makeDocx builds a package whose document body is bodyXML, plus any extra
// parts, and returns its bytes.
func makeDocx(t *testing.T, bodyXML string, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + docNS + `><w:body>` + bodyXML + `</w:body></w:document>`
	if err := w.Add(DocumentPart, []byte(doc)); err != nil {
		t.Fatalf("makeDocx: %v", err)
	}
	for name, body := range extra {
		if err := w.Add(name, []byte(body)); err != nil {
			t.Fatalf("makeDocx %s: %v", name, err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("makeDocx finalize: %v", err)
	}
	return buf.Bytes()
}

// writeDocx writes makeDocx output to a temp file and returns its path.
func writeDocx(t *testing.T, bodyXML string, extra map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.docx")
	if err := os.WriteFile(path, makeDocx(t, bodyXML, extra), 0o600); err != nil {
		t.Fatalf("writeDocx: %v", err)
	}
	return path
}

func convert(t *testing.T, bodyXML string, extra map[string]string, opts ...Option) string {
	t.Helper()
	md, err := New(opts...).Convert(makeDocx(t, bodyXML, extra))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return md
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("expected output to contain %q\ngot: %s", want, got)
	}
}

func para(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

func styled(style string, runs ...string) string {
	return `<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>` + strings.Join(runs, "") + "</w:p>"
}

func run(text string, props ...string) string {
	rpr := ""
	if len(props) > 0 {
		rpr = "<w:rPr>" + strings.Join(props, "") + "</w:rPr>"
	}
	return "<w:r>" + rpr + `<w:t xml:space="preserve">` + text + "</w:t></w:r>"
}

func drawing(relID, name string) string {
	return `<w:r><w:drawing><wp:inline><wp:extent cx="2000000" cy="2000000"/>` +
		`<wp:docPr id="1" name="` + name + `"/><a:graphic><a:graphicData>` +
		`<pic:pic><pic:blipFill><a:blip r:embed="` + relID + `"/></pic:blipFill></pic:pic>` +
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`
}

const imageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>` +
	`</Relationships>`

// makeRaw builds a package whose document part is exactly documentXML.
func makeRaw(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	if err := w.Add(DocumentPart, []byte(documentXML)); err != nil {
		t.Fatalf("makeRaw: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("makeRaw finalize: %v", err)
	}
	return buf.Bytes()
}

// makeDocxWithout builds a package that lacks the document part.
func makeDocxWithout(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	if err := w.Add("word/styles.xml", []byte("<w:styles/>")); err != nil {
		t.Fatalf("makeDocxWithout: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("makeDocxWithout finalize: %v", err)
	}
	return buf.Bytes()
}
