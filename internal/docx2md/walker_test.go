package docx2md

import (
	"testing"

	"github.com/dgallion1/docbridge/internal/format"
	"github.com/dgallion1/docbridge/internal/xmltree"
)

func parseBody(t *testing.T, bodyXML string) (*xmltree.Tree, int) {
	t.Helper()
	tree, err := xmltree.ParseBytes([]byte(`<w:document ` + docNS + `><w:body>` + bodyXML + `</w:body></w:document>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tree, tree.FindElement(tree.Root(), "w:body")
}

func TestBodyChildren_OnlyDirectChildren(t *testing.T) {
	tree, body := parseBody(t, para(run("a"))+"<w:tbl><w:tr><w:tc>"+para(run("b"))+"</w:tc></w:tr></w:tbl><w:sectPr/>")
	var kinds []BlockKind
	for b := range BodyChildren(tree, body) {
		kinds = append(kinds, b.Kind)
	}
	if len(kinds) != 2 || kinds[0] != BlockParagraph || kinds[1] != BlockTable {
		t.Errorf("expected paragraph then table, got %v", kinds)
	}
}

func TestClassifyParagraph(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want Class
	}{
		{"plain", para(run("x")), Class{Kind: Normal}},
		{"heading3", styled("Heading3", run("x")), Class{Kind: Heading, Level: 3}},
		{"code", styled("Code"), Class{Kind: CodeBlock}},
		{"other style", styled("Quote"), Class{Kind: Normal}},
		{"rule", `<w:p><w:pPr><w:pBdr><w:bottom/></w:pBdr></w:pPr></w:p>`, Class{Kind: HorizontalRule}},
		{"top border only", `<w:p><w:pPr><w:pBdr><w:top/></w:pBdr></w:pPr></w:p>`, Class{Kind: Normal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, body := parseBody(t, tt.xml)
			p := tree.FindChild(body, xmltree.Element, "w:p")
			if got := ClassifyParagraph(tree, p); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestExtractRun(t *testing.T) {
	tree, body := parseBody(t, para(`<w:r><w:rPr><w:b/><w:strike/></w:rPr><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/></w:r>`))
	r := tree.FindElement(body, "w:r")
	got := ExtractRun(tree, r)
	if got.Marks != format.Of(format.Bold, format.Strike) {
		t.Errorf("unexpected marks %v", got.Marks)
	}
	if got.Text != "a\tb" || !got.Break {
		t.Errorf("unexpected run %+v", got)
	}
}

func TestExtractRun_Drawing(t *testing.T) {
	tree, body := parseBody(t, para(drawing("rId7", "")))
	got := ExtractRun(tree, tree.FindElement(body, "w:r"))
	if got.Image == nil || got.Image.RelID != "rId7" || got.Image.Alt != "Image" {
		t.Errorf("unexpected image %+v", got.Image)
	}
}

func TestParagraphRuns_IncludesHyperlinks(t *testing.T) {
	tree, body := parseBody(t, `<w:p>`+run("a")+`<w:hyperlink r:id="rId9">`+run("b")+`</w:hyperlink></w:p>`)
	p := tree.FindChild(body, xmltree.Element, "w:p")
	n := 0
	for range ParagraphRuns(tree, p) {
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 runs, got %d", n)
	}
}

func TestEmitter_RunImageUnresolved(t *testing.T) {
	e := NewEmitter()
	e.Run(Run{Image: &ImageRef{RelID: "rId1", Alt: "x"}})
	if e.String() != "" {
		t.Errorf("expected no bytes for unresolved image, got %q", e.String())
	}
}
