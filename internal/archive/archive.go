// Package archive reads and writes the zip containers that carry
// WordprocessingML packages.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docbridge/internal/docerr"
)

// MaxEntrySize bounds a single decompressed part.
const MaxEntrySize = 256 << 20

// Reader gives by-name access to the parts of a package.
type Reader struct {
	zr     *zip.Reader
	closer io.Closer
	files  map[string]*zip.File
}

// Open opens the package at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, docerr.EntryMissing("open", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, docerr.EntryMissing("open", path, err)
	}
	r, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads a package held by ra.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, docerr.EntryMissing("open", "", fmt.Errorf("not a zip container: %w", err))
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		if _, dup := files[name]; !dup {
			files[name] = f
		}
	}
	return &Reader{zr: zr, files: files}, nil
}

func (r *Reader) lookup(name string) *zip.File {
	if f, ok := r.files[name]; ok {
		return f
	}
	// Part names are case-insensitive in OPC packages.
	for n, f := range r.files {
		if strings.EqualFold(n, name) {
			return f
		}
	}
	return nil
}

// Has reports whether the package contains the named part.
func (r *Reader) Has(name string) bool {
	return r.lookup(name) != nil
}

// Extract returns the decompressed bytes of the named part.
func (r *Reader) Extract(name string) ([]byte, error) {
	f := r.lookup(name)
	if f == nil {
		return nil, docerr.EntryMissing("extract", name, os.ErrNotExist)
	}
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, docerr.Allocation("extract", fmt.Errorf("%s: %d bytes exceeds limit", name, f.UncompressedSize64))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, docerr.EntryMissing("extract", name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	buf.Grow(int(f.UncompressedSize64))
	if _, err := io.Copy(&buf, io.LimitReader(rc, MaxEntrySize+1)); err != nil {
		return nil, docerr.EntryMissing("extract", name, err)
	}
	if buf.Len() > MaxEntrySize {
		return nil, docerr.Allocation("extract", fmt.Errorf("%s exceeds limit", name))
	}
	return buf.Bytes(), nil
}

// Close releases the underlying file, if Open created one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Writer adds parts to a new package. The package is only complete after
// Finalize returns nil.
type Writer struct {
	zw        *zip.Writer
	names     map[string]bool
	finalized bool
}

// NewWriter returns a Writer that streams the package to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), names: make(map[string]bool)}
}

// Add stores data under name.
func (w *Writer) Add(name string, data []byte) error {
	if w.finalized {
		return errors.New("archive: add after finalize")
	}
	if w.names[name] {
		return fmt.Errorf("archive: duplicate part %s", name)
	}
	fw, err := w.zw.Create(name)
	if err != nil {
		return docerr.OutputWrite("add", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return docerr.OutputWrite("add", name, err)
	}
	w.names[name] = true
	return nil
}

// Finalize writes the central directory.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true
	if err := w.zw.Close(); err != nil {
		return docerr.OutputWrite("finalize", "", err)
	}
	return nil
}

// AtomicFile is an output file that only appears at its final path after
// Commit. Until then it lives as a temp file in the same directory.
type AtomicFile struct {
	f    *os.File
	path string
	done bool
}

// CreateAtomic starts writing the file that will become path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, docerr.OutputWrite("create", path, err)
	}
	return &AtomicFile{f: f, path: path}, nil
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// TempName returns the path of the pending temp file.
func (a *AtomicFile) TempName() string { return a.f.Name() }

// Commit closes the temp file and renames it over the destination.
func (a *AtomicFile) Commit() error {
	if a.done {
		return errors.New("archive: file already committed or aborted")
	}
	a.done = true
	if err := a.f.Close(); err != nil {
		os.Remove(a.f.Name())
		return docerr.OutputWrite("commit", a.path, err)
	}
	if err := os.Rename(a.f.Name(), a.path); err != nil {
		os.Remove(a.f.Name())
		return docerr.OutputWrite("commit", a.path, err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit, so it can be
// deferred unconditionally.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	a.f.Close()
	if err := os.Remove(a.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
