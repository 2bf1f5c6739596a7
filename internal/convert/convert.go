// Package convert picks a conversion by file extension and runs it in an
// isolated work directory.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docbridge/internal/docx2md"
	"github.com/dgallion1/docbridge/internal/doctxt"
	"github.com/dgallion1/docbridge/internal/md2docx"
)

// Format names a conversion target.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatDocx     Format = "docx"
	FormatText     Format = "txt"
	FormatComments Format = "comments"
)

// Content types of the produced formats.
const (
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeText     = "text/plain; charset=utf-8"
	ContentTypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ImageDir is the work-directory subfolder extracted images are written to
// and the prefix of their Markdown links.
const ImageDir = "images"

// SupportedExtensions lists the input extensions and the targets each one
// can be converted to. The first target is the default.
var SupportedExtensions = map[string][]Format{
	".docx":     {FormatMarkdown, FormatText, FormatComments},
	".md":       {FormatDocx},
	".markdown": {FormatDocx},
	".pdf":      {FormatText},
}

// ErrUnsupported is returned for an extension or target that has no
// conversion.
var ErrUnsupported = errors.New("unsupported conversion")

// Request is one conversion job.
type Request struct {
	Filename string
	Data     []byte
	// Target defaults to the first format listed for the extension.
	Target Format
	// WorkDir receives the input copy and any extracted images. It must
	// exist and belong to this request alone.
	WorkDir string
	// EmbedImages reads local images referenced by Markdown from WorkDir.
	// When false they are rendered as alt text.
	EmbedImages bool
}

// Image is a file produced alongside the converted document.
type Image struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Result is the output of a conversion.
type Result struct {
	Format      Format
	ContentType string
	Data        []byte
	Images      []Image
}

// Options configures a Registry.
type Options struct {
	Extensions  md2docx.Extensions
	PDFFallback bool
	Logger      *slog.Logger
}

// Registry dispatches requests to the matching converter. It holds only
// configuration and is safe for concurrent use.
type Registry struct {
	opts Options
}

// NewRegistry creates a Registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{opts: opts}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Resolve returns the target a request converts to.
func Resolve(filename string, target Format) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	targets, ok := SupportedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupported, ext)
	}
	if target == "" {
		return targets[0], nil
	}
	for _, t := range targets {
		if t == target {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s to %s", ErrUnsupported, ext, target)
}

// Convert runs req. Cancellation is only observed before the conversion
// starts.
func (r *Registry) Convert(ctx context.Context, req Request) (Result, error) {
	target, err := Resolve(req.Filename, req.Target)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.WorkDir == "" {
		return Result{}, errors.New("convert: work dir required")
	}

	input := filepath.Join(req.WorkDir, "input"+strings.ToLower(filepath.Ext(req.Filename)))
	if err := os.WriteFile(input, req.Data, 0o600); err != nil {
		return Result{}, fmt.Errorf("stage input: %w", err)
	}

	log := r.opts.Logger.With("filename", req.Filename, "target", string(target))
	log.Debug("converting")

	switch target {
	case FormatMarkdown:
		return r.toMarkdown(input, req.WorkDir, log)
	case FormatDocx:
		return r.toDocx(input, req.EmbedImages, log)
	case FormatText, FormatComments:
		text, err := doctxt.ExtractFile(input, doctxt.Options{
			Comments:    target == FormatComments,
			PDFFallback: r.opts.PDFFallback,
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Format: target, ContentType: ContentTypeText, Data: []byte(text)}, nil
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, target)
}

func (r *Registry) toMarkdown(input, workDir string, log *slog.Logger) (Result, error) {
	imgDir := filepath.Join(workDir, ImageDir)
	conv := docx2md.New(
		docx2md.WithImageDir(imgDir),
		docx2md.WithImageLinkBase(ImageDir),
		docx2md.WithLogger(log),
	)
	md, err := conv.ConvertFile(input)
	if err != nil {
		return Result{}, err
	}
	images, err := readImages(imgDir)
	if err != nil {
		return Result{}, err
	}
	return Result{Format: FormatMarkdown, ContentType: ContentTypeMarkdown, Data: []byte(md), Images: images}, nil
}

func (r *Registry) toDocx(input string, embed bool, log *slog.Logger) (Result, error) {
	conv := md2docx.New(
		md2docx.WithExtensions(r.opts.Extensions),
		md2docx.WithSkipImages(!embed),
		md2docx.WithLogger(log),
	)
	data, err := conv.ConvertFile(input)
	if err != nil {
		return Result{}, err
	}
	return Result{Format: FormatDocx, ContentType: ContentTypeDocx, Data: data}, nil
}

func readImages(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	var images []Image
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", e.Name(), err)
		}
		images = append(images, Image{Name: e.Name(), Data: data})
	}
	return images, nil
}
