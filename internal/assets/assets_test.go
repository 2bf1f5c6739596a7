package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docbridge/internal/docerr"
	"github.com/dgallion1/docbridge/internal/rels"
)

type memParts map[string][]byte

func (m memParts) Extract(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, docerr.EntryMissing("extract", name, os.ErrNotExist)
	}
	return data, nil
}

func (m memParts) Add(name string, data []byte) error {
	m[name] = data
	return nil
}

func TestExtractor_WritesBaseName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	src := memParts{"word/media/image1.png": []byte("PNGDATA")}
	ex := NewExtractor(src, dir)

	name, err := ex.Extract("media/image1.png")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if name != "image1.png" {
		t.Errorf("expected image1.png, got %q", name)
	}
	got, err := os.ReadFile(filepath.Join(dir, "image1.png"))
	if err != nil || string(got) != "PNGDATA" {
		t.Errorf("expected written bytes, got %q (%v)", got, err)
	}

	if _, err := ex.Extract("media/image1.png"); err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if len(ex.Written()) != 1 {
		t.Errorf("expected one written file, got %v", ex.Written())
	}

	if err := ex.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "image1.png")); !os.IsNotExist(err) {
		t.Error("expected cleanup to remove the image")
	}
}

func TestExtractor_MissingPart(t *testing.T) {
	ex := NewExtractor(memParts{}, t.TempDir())
	_, err := ex.Extract("media/nope.png")
	if !docerr.Is(err, docerr.KindEntryMissing) {
		t.Errorf("expected entry-missing, got %v", err)
	}
}

func TestExtractor_NoDir(t *testing.T) {
	ex := NewExtractor(memParts{"word/media/a.gif": []byte("GIF")}, "")
	name, err := ex.Extract("media/a.gif")
	if err != nil || name != "a.gif" {
		t.Fatalf("expected a.gif, got %q (%v)", name, err)
	}
	if len(ex.Written()) != 0 {
		t.Error("expected nothing written without a directory")
	}
}

func TestCollector_Finalize(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "logo.jpg"), []byte("JPEG"), 0o644)
	os.WriteFile(filepath.Join(dir, "diagram"), []byte("RAW"), 0o644)

	c := NewCollector(dir)
	if c.Collect("logo.jpg") != 0 || c.Collect("diagram") != 1 {
		t.Fatal("expected ordinals 0 and 1")
	}

	sink := memParts{}
	table := rels.NewDocument()
	if err := c.Finalize(sink, table); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if string(sink["word/media/image1.jpg"]) != "JPEG" {
		t.Error("expected first image stored as media/image1.jpg")
	}
	if string(sink["word/media/image2.png"]) != "RAW" {
		t.Error("expected extensionless image stored as png")
	}
	if target, _ := table.Resolve("rId4"); target != "media/image2.png" {
		t.Errorf("expected rId4 → media/image2.png, got %q", target)
	}
}

func TestCollector_MissingFile(t *testing.T) {
	c := NewCollector(t.TempDir())
	c.Collect("missing.png")
	err := c.Finalize(memParts{}, rels.NewDocument())
	if !docerr.Is(err, docerr.KindEntryMissing) {
		t.Errorf("expected entry-missing, got %v", err)
	}
}

func TestCollector_PercentEncodedPath(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "my image.png"), []byte("X"), 0o644)
	c := NewCollector(dir)
	c.Collect("my%20image.png")
	sink := memParts{}
	if err := c.Finalize(sink, rels.NewDocument()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if string(sink["word/media/image1.png"]) != "X" {
		t.Error("expected unescaped path to be read")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		".png": "image/png", "JPG": "image/jpeg", ".jpeg": "image/jpeg",
		".gif": "image/gif", ".svg": "image/svg+xml", ".xyz": "image/png", "": "image/png",
	}
	for ext, want := range tests {
		if got := ContentType(ext); got != want {
			t.Errorf("ContentType(%q): expected %q, got %q", ext, want, got)
		}
	}
}

func TestContentTypesXML(t *testing.T) {
	out := string(ContentTypesXML([]string{"media/image1.gif", "media/image2.png"}))
	for _, want := range []string{
		`<Default Extension="gif" ContentType="image/gif"/>`,
		`<Default Extension="png" ContentType="image/png"/>`,
		`PartName="/word/document.xml"`,
		`PartName="/word/numbering.xml"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in content types", want)
		}
	}
	if strings.Count(out, `Extension="png"`) != 1 {
		t.Error("expected png default once")
	}
}
