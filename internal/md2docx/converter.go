// Package md2docx converts GitHub-flavored Markdown to WordprocessingML.
//
// goldmark parses the source; an adapter replays its tree as block, span
// and text events; the Emitter turns those events into the document body.
// The package is then assembled from the body, fixed style and numbering
// parts, and every local image the body references.
package md2docx

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docbridge/internal/archive"
	"github.com/dgallion1/docbridge/internal/assets"
	"github.com/dgallion1/docbridge/internal/docerr"
	"github.com/dgallion1/docbridge/internal/rels"
)

// Options configures a Converter.
type Options struct {
	// BaseDir resolves relative image paths. File conversions default it
	// to the directory of the Markdown input.
	BaseDir    string
	Extensions Extensions
	// SkipImages renders images as their alt text.
	SkipImages bool
	Logger     *slog.Logger
}

// Option is a functional option for configuring the converter.
type Option func(*Options)

// WithBaseDir sets the directory relative image paths resolve against.
func WithBaseDir(dir string) Option {
	return func(o *Options) { o.BaseDir = dir }
}

// WithExtensions selects the Markdown dialect.
func WithExtensions(ext Extensions) Option {
	return func(o *Options) { o.Extensions = ext }
}

// WithSkipImages disables image embedding.
func WithSkipImages(skip bool) Option {
	return func(o *Options) { o.SkipImages = skip }
}

// WithLogger sets the logger used for skipped content.
func WithLogger(log *slog.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// Converter turns Markdown into .docx packages. It is safe for concurrent
// use.
type Converter struct {
	opts Options
}

// New creates a Converter. All dialect extensions are on unless
// WithExtensions overrides them.
func New(opts ...Option) *Converter {
	o := Options{Extensions: AllExtensions()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{opts: o}
}

// Convert converts src and returns the package bytes.
func (c *Converter) Convert(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.write(&buf, src, c.opts.BaseDir); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ConvertTo converts src and streams the package to w.
func (c *Converter) ConvertTo(w io.Writer, src []byte) error {
	return c.write(w, src, c.opts.BaseDir)
}

// ConvertFile converts the Markdown file at path.
func (c *Converter) ConvertFile(path string) ([]byte, error) {
	src, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.write(&buf, src, c.baseDir(path)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ConvertFileToFile converts inputPath into a package at outputPath. The
// output only appears once the package is complete.
func (c *Converter) ConvertFileToFile(inputPath, outputPath string) error {
	src, err := readInput(inputPath)
	if err != nil {
		return err
	}
	out, err := archive.CreateAtomic(outputPath)
	if err != nil {
		return err
	}
	defer out.Abort()

	if err := c.write(out, src, c.baseDir(inputPath)); err != nil {
		return err
	}
	return out.Commit()
}

func (c *Converter) baseDir(inputPath string) string {
	if c.opts.BaseDir != "" {
		return c.opts.BaseDir
	}
	return filepath.Dir(inputPath)
}

func readInput(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, docerr.EntryMissing("read markdown", path, err)
	}
	return src, nil
}

func (c *Converter) write(w io.Writer, src []byte, baseDir string) error {
	var col *assets.Collector
	if !c.opts.SkipImages {
		col = assets.NewCollector(baseDir)
	}
	em := NewEmitter(col, c.opts.Logger)
	if err := Parse(src, c.opts.Extensions, em); err != nil {
		return err
	}

	var targets []string
	if col != nil {
		targets = col.MediaTargets()
	}
	table := rels.NewDocument()
	zw := archive.NewWriter(w)

	if err := zw.Add(ContentTypesPart, assets.ContentTypesXML(targets)); err != nil {
		return err
	}
	if err := zw.Add(RootRelsPart, RootRelsXML()); err != nil {
		return err
	}
	if col != nil {
		if err := col.Finalize(zw, table); err != nil {
			return err
		}
	}
	parts := []struct {
		name string
		data []byte
	}{
		{rels.RelsPath(DocumentPart), table.Marshal()},
		{DocumentPart, DocumentXML(em.Body())},
		{StylesPart, StylesXML()},
		{NumberingPart, NumberingXML()},
	}
	for _, p := range parts {
		if err := zw.Add(p.name, p.data); err != nil {
			return err
		}
	}
	c.opts.Logger.Debug("package assembled", "images", len(targets), "body_bytes", len(em.Body()))
	return zw.Finalize()
}
