// Package assets moves image bytes between packages and the file system.
//
// Extractor serves the docx→md direction: it copies packaged media out to
// an images directory. Collector serves md→docx: it records local image
// paths while the document is emitted and copies them into the package at
// finalize time.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/docbridge/internal/docerr"
	"github.com/dgallion1/docbridge/internal/rels"
)

// MediaPrefix is where document-relative image targets live in the package.
const MediaPrefix = "word/"

// PartSource reads package parts by name.
type PartSource interface {
	Extract(name string) ([]byte, error)
}

// PartSink stores package parts by name.
type PartSink interface {
	Add(name string, data []byte) error
}

// Extractor writes packaged images into Dir.
type Extractor struct {
	src     PartSource
	dir     string
	written []string
}

// NewExtractor returns an Extractor reading from src. With an empty dir the
// image bytes are still read and validated but nothing is written.
func NewExtractor(src PartSource, dir string) *Extractor {
	return &Extractor{src: src, dir: dir}
}

// Extract copies the image addressed by a document relationship target and
// returns the file name used for it. The same name written twice keeps the
// last bytes.
func (e *Extractor) Extract(target string) (string, error) {
	name := path.Base(strings.ReplaceAll(target, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "", docerr.Malformed("extract image", fmt.Sprintf("bad image target %q", target))
	}
	data, err := e.src.Extract(rels.PartPath(MediaPrefix+"document.xml", target))
	if err != nil {
		return "", err
	}
	if e.dir == "" {
		return name, nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", docerr.OutputWrite("extract image", e.dir, err)
	}
	dest := filepath.Join(e.dir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", docerr.OutputWrite("extract image", dest, err)
	}
	if !slices.Contains(e.written, dest) {
		e.written = append(e.written, dest)
	}
	return name, nil
}

// Written lists the files created so far.
func (e *Extractor) Written() []string {
	return slices.Clone(e.written)
}

// Cleanup removes every file Extract wrote.
func (e *Extractor) Cleanup() error {
	var errs []error
	for _, p := range e.written {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	e.written = nil
	return errors.Join(errs...)
}

// Collector accumulates local image paths referenced by a Markdown source.
type Collector struct {
	baseDir string
	pending []string
}

// NewCollector resolves relative image paths against baseDir.
func NewCollector(baseDir string) *Collector {
	return &Collector{baseDir: baseDir}
}

// Collect records path and returns its 0-based ordinal. Files are not
// touched until Finalize.
func (c *Collector) Collect(path string) int {
	c.pending = append(c.pending, path)
	return len(c.pending) - 1
}

// Pending returns the recorded paths in collection order.
func (c *Collector) Pending() []string {
	return slices.Clone(c.pending)
}

// MediaTarget returns the document-relative target of the image with the
// given ordinal, e.g. "media/image1.png".
func (c *Collector) MediaTarget(ordinal int) string {
	return fmt.Sprintf("media/image%d%s", ordinal+1, extOf(c.pending[ordinal]))
}

// Finalize reads every pending file, stores it in sink and registers its
// relationship in table. A file that cannot be read fails the conversion.
func (c *Collector) Finalize(sink PartSink, table *rels.Table) error {
	for i, p := range c.pending {
		data, err := c.read(p)
		if err != nil {
			return docerr.EntryMissing("embed image", p, err)
		}
		target := c.MediaTarget(i)
		if err := sink.Add(MediaPrefix+target, data); err != nil {
			return err
		}
		table.AddImage(i, target)
	}
	return nil
}

func (c *Collector) read(p string) ([]byte, error) {
	candidates := []string{p}
	if u, err := url.PathUnescape(p); err == nil && u != p {
		candidates = append(candidates, u)
	}
	var firstErr error
	for _, cand := range candidates {
		full := filepath.FromSlash(cand)
		if !filepath.IsAbs(full) && c.baseDir != "" {
			full = filepath.Join(c.baseDir, full)
		}
		data, err := os.ReadFile(full)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// MediaTargets returns the targets of all pending images.
func (c *Collector) MediaTargets() []string {
	out := make([]string, len(c.pending))
	for i := range c.pending {
		out[i] = c.MediaTarget(i)
	}
	return out
}

func extOf(p string) string {
	ext := path.Ext(strings.ReplaceAll(p, "\\", "/"))
	if len(ext) < 2 {
		return ".png"
	}
	for _, r := range ext[1:] {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9') {
			return ".png"
		}
	}
	return ext
}

// ContentType maps a file extension (with or without the dot) to a MIME
// type. Unknown extensions are treated as PNG.
func ContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tif", "tiff":
		return "image/tiff"
	case "svg":
		return "image/svg+xml"
	case "webp":
		return "image/webp"
	case "emf":
		return "image/x-emf"
	case "wmf":
		return "image/x-wmf"
	}
	return "image/png"
}

var baseDefaults = []string{"png", "jpg", "jpeg"}

// ContentTypesXML renders [Content_Types].xml for a generated document whose
// media parts are named by targets.
func ContentTypesXML(targets []string) []byte {
	exts := slices.Clone(baseDefaults)
	for _, t := range targets {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(t), "."))
		if ext != "" && ext != "rels" && ext != "xml" && !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(rels.Header)
	buf.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	buf.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	buf.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	for _, ext := range exts {
		fmt.Fprintf(&buf, `<Default Extension="%s" ContentType="%s"/>`, ext, ContentType(ext))
	}
	buf.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	buf.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	buf.WriteString(`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>`)
	buf.WriteString(`</Types>`)
	return buf.Bytes()
}
