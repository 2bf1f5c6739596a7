package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docbridge/internal/convert"
	"github.com/dgallion1/docbridge/internal/docerr"
)

// upload is a validated multipart conversion request.
type upload struct {
	filename string
	target   convert.Format
	data     []byte
}

// requestError is a client mistake with its HTTP status.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(status int, format string, args ...any) error {
	return &requestError{status: status, msg: fmt.Sprintf(format, args...)}
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}

	res, err := s.orchestrator.Convert(r.Context(), up.filename, up.target, up.data)
	if err != nil {
		s.log.Warn("conversion failed", "filename", up.filename, "error", err)
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	writeResult(w, up.filename, res)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return upload{}, badRequest(http.StatusRequestEntityTooLarge, "file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
		}
		return upload{}, badRequest(http.StatusBadRequest, "invalid multipart form: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, badRequest(http.StatusBadRequest, "file is required: %v", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	target, err := convert.Resolve(filename, convert.Format(r.FormValue("target")))
	if err != nil {
		return upload{}, err
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return upload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return upload{}, badRequest(http.StatusRequestEntityTooLarge, "file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return upload{filename: filename, target: target, data: data}, nil
}

// writeResult sends text formats as JSON and a docx as a download.
func writeResult(w http.ResponseWriter, filename string, res convert.Result) {
	if res.Format == convert.FormatDocx {
		name := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".docx"
		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		w.Write(res.Data)
		return
	}
	images := res.Images
	if images == nil {
		images = []convert.Image{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":     filename,
		"format":       res.Format,
		"content_type": res.ContentType,
		"content":      string(res.Data),
		"images":       images,
	})
}

// errorStatus maps a conversion failure to an HTTP status.
func errorStatus(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status
	}
	if errors.Is(err, convert.ErrUnsupported) {
		return http.StatusUnsupportedMediaType
	}
	switch docerr.KindOf(err) {
	case docerr.KindEntryMissing, docerr.KindMalformed, docerr.KindMarkdownParse:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
