// Package docx2md converts WordprocessingML documents to Markdown.
//
// The document part is parsed into an xmltree arena, the direct children of
// w:body are walked in order, and each paragraph or table is handed to an
// Emitter. Images are resolved through the document relationships and
// copied out of the package next to the Markdown output.
package docx2md

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/dgallion1/docbridge/internal/archive"
	"github.com/dgallion1/docbridge/internal/assets"
	"github.com/dgallion1/docbridge/internal/docerr"
	"github.com/dgallion1/docbridge/internal/rels"
	"github.com/dgallion1/docbridge/internal/xmltree"
)

// Package part names read by the converter.
const (
	DocumentPart  = "word/document.xml"
	NumberingPart = "word/numbering.xml"
)

// Options configures a Converter.
type Options struct {
	// ImageDir receives extracted images. Empty means images are referenced
	// by file name but not written.
	ImageDir string
	// ImageLinkBase is prepended to image file names in the Markdown.
	ImageLinkBase string
	// SkipImages drops every image reference.
	SkipImages bool
	Logger     *slog.Logger
}

// Option is a functional option for configuring the converter.
type Option func(*Options)

// WithImageDir sets the directory images are extracted to.
func WithImageDir(dir string) Option {
	return func(o *Options) { o.ImageDir = dir }
}

// WithImageLinkBase sets the prefix of emitted image links.
func WithImageLinkBase(base string) Option {
	return func(o *Options) { o.ImageLinkBase = base }
}

// WithSkipImages disables image extraction.
func WithSkipImages(skip bool) Option {
	return func(o *Options) { o.SkipImages = skip }
}

// WithLogger sets the logger used for skipped content.
func WithLogger(log *slog.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// Converter turns .docx packages into Markdown. A Converter holds only
// configuration, so one value may serve concurrent conversions.
type Converter struct {
	opts Options
}

// New creates a Converter with the given options.
func New(opts ...Option) *Converter {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{opts: o}
}

// Convert converts the package held in data.
func (c *Converter) Convert(data []byte) (string, error) {
	ar, err := archive.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer ar.Close()
	md, _, err := c.convert(ar, c.opts.ImageDir, c.opts.ImageLinkBase)
	return md, err
}

// ConvertFile converts the package at path.
func (c *Converter) ConvertFile(path string) (string, error) {
	ar, err := archive.Open(path)
	if err != nil {
		return "", err
	}
	defer ar.Close()
	md, _, err := c.convert(ar, c.opts.ImageDir, c.opts.ImageLinkBase)
	return md, err
}

// ConvertFileToFile converts inputPath and writes Markdown to outputPath.
// Images go to ImageDir, or next to outputPath when unset, and are linked
// relative to the Markdown file. On failure neither the Markdown file nor
// any extracted image is left behind.
func (c *Converter) ConvertFileToFile(inputPath, outputPath string) error {
	ar, err := archive.Open(inputPath)
	if err != nil {
		return err
	}
	defer ar.Close()

	outDir := filepath.Dir(outputPath)
	imgDir := c.opts.ImageDir
	if imgDir == "" {
		imgDir = outDir
	}
	linkBase := ""
	if rel, err := filepath.Rel(outDir, imgDir); err == nil && rel != "." {
		linkBase = filepath.ToSlash(rel)
	}

	out, err := archive.CreateAtomic(outputPath)
	if err != nil {
		return err
	}
	defer out.Abort()

	md, ex, err := c.convert(ar, imgDir, linkBase)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, md); err != nil {
		ex.Cleanup()
		return docerr.OutputWrite("write", outputPath, err)
	}
	if err := out.Commit(); err != nil {
		ex.Cleanup()
		return err
	}
	return nil
}

func (c *Converter) convert(ar *archive.Reader, imgDir, linkBase string) (string, *assets.Extractor, error) {
	ex := assets.NewExtractor(ar, imgDir)

	data, err := ar.Extract(DocumentPart)
	if err != nil {
		return "", ex, err
	}
	tree, err := xmltree.ParseBytes(data)
	if err != nil {
		return "", ex, docerr.New(docerr.KindMalformed, "parse", DocumentPart, err)
	}
	if err := tree.Validate(); err != nil {
		return "", ex, docerr.New(docerr.KindMalformed, "parse", DocumentPart, err)
	}
	body := tree.FindElement(tree.Root(), "w:body")
	if body == xmltree.NoNode {
		return "", ex, docerr.Malformed("walk", "no w:body element")
	}

	w := &walk{
		conv:      c,
		tree:      tree,
		images:    c.imageTable(ar),
		numbering: c.numbering(ar),
		ex:        ex,
		linkBase:  linkBase,
		em:        NewEmitter(),
	}
	if err := w.body(body); err != nil {
		ex.Cleanup()
		return "", ex, err
	}
	return w.em.String(), ex, nil
}

// imageTable loads the image relationships. A missing or unreadable part
// only means no image resolves.
func (c *Converter) imageTable(ar *archive.Reader) *rels.Table {
	name := rels.RelsPath(DocumentPart)
	if !ar.Has(name) {
		return rels.New()
	}
	data, err := ar.Extract(name)
	if err != nil {
		c.opts.Logger.Warn("relationships unreadable", "part", name, "error", err)
		return rels.New()
	}
	t, err := rels.ParseImages(data)
	if err != nil {
		c.opts.Logger.Warn("relationships malformed", "part", name, "error", err)
		return rels.New()
	}
	return t
}

func (c *Converter) numbering(ar *archive.Reader) *Numbering {
	if !ar.Has(NumberingPart) {
		return ParseNumbering(nil)
	}
	data, err := ar.Extract(NumberingPart)
	if err != nil {
		return ParseNumbering(nil)
	}
	t, err := xmltree.ParseBytes(data)
	if err != nil {
		c.opts.Logger.Warn("numbering malformed", "error", err)
		return ParseNumbering(nil)
	}
	return ParseNumbering(t)
}

// walk is the state of one conversion.
type walk struct {
	conv      *Converter
	tree      *xmltree.Tree
	images    *rels.Table
	numbering *Numbering
	ex        *assets.Extractor
	linkBase  string
	em        *Emitter
}

func (w *walk) body(body int) error {
	for b := range BodyChildren(w.tree, body) {
		switch b.Kind {
		case BlockParagraph:
			p, err := w.paragraph(b.Node)
			if err != nil {
				return err
			}
			w.em.Paragraph(p)
		case BlockTable:
			rows, err := w.table(b.Node)
			if err != nil {
				return err
			}
			w.em.Table(rows)
		}
	}
	w.em.Finish()
	return nil
}

func (w *walk) paragraph(p int) (Paragraph, error) {
	para := Paragraph{Class: ClassifyParagraph(w.tree, p)}
	if para.Class.Kind == HorizontalRule {
		return para, nil
	}
	if ppr := w.tree.FindChild(p, xmltree.Element, "w:pPr"); ppr != xmltree.NoNode {
		para.Styled = paragraphStyle(w.tree, ppr) != ""
	}
	if ref, ok := ParagraphList(w.tree, p); ok && para.Class.Kind == Normal {
		para.List = &ListItem{Level: ref.Level, Ordered: w.numbering.Ordered(ref.NumID, ref.Level)}
	}
	runs, err := w.runs(p)
	if err != nil {
		return para, err
	}
	para.Runs = runs
	para.HasRuns = len(runs) > 0
	return para, nil
}

func (w *walk) runs(p int) ([]Run, error) {
	var runs []Run
	for r := range ParagraphRuns(w.tree, p) {
		run := ExtractRun(w.tree, r)
		if run.Image != nil {
			if err := w.resolveImage(run.Image); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// resolveImage sets img.Link when the relationship resolves and the image
// part can be copied. Unknown ids and absent media are skipped.
func (w *walk) resolveImage(img *ImageRef) error {
	log := w.conv.opts.Logger
	if w.conv.opts.SkipImages {
		return nil
	}
	target, ok := w.images.Resolve(img.RelID)
	if !ok {
		log.Debug("image relationship not found", "rel_id", img.RelID)
		return nil
	}
	name, err := w.ex.Extract(target)
	if err != nil {
		if docerr.Is(err, docerr.KindEntryMissing) {
			log.Warn("image part missing", "rel_id", img.RelID, "target", target)
			return nil
		}
		return err
	}
	img.Link = name
	if w.linkBase != "" {
		img.Link = path.Join(w.linkBase, name)
	}
	return nil
}

func (w *walk) table(tbl int) ([][]Cell, error) {
	var rows [][]Cell
	for _, cells := range TableRows(w.tree, tbl) {
		row := make([]Cell, 0, len(cells))
		for _, tc := range cells {
			var cell Cell
			for p := range w.tree.ChildElements(tc, "w:p") {
				runs, err := w.runs(p)
				if err != nil {
					return nil, err
				}
				cell = append(cell, runs)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DefaultImageDir returns the directory images land in for outputPath.
func DefaultImageDir(outputPath string) string {
	if outputPath == "" {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(outputPath)
}
