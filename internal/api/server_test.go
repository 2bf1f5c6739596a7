package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docbridge/internal/config"
	"github.com/dgallion1/docbridge/internal/convert"
	"github.com/dgallion1/docbridge/internal/md2docx"
	"github.com/dgallion1/docbridge/internal/pipeline"
)

const testKey = "secret"

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		WorkDir:        t.TempDir(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := convert.NewRegistry(convert.Options{Extensions: md2docx.AllExtensions(), Logger: log})
	orch := pipeline.NewOrchestrator(cfg, reg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

func uploadRequest(t *testing.T, path, filename string, data []byte, target string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if target != "" {
		mw.WriteField("target", target)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func sampleDocx(t *testing.T) []byte {
	t.Helper()
	data, err := md2docx.New().Convert([]byte("# Title\n\nSome **bold** text.\n"))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHealth(t *testing.T) {
	s := testServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["status"]; got != "ok" {
		t.Errorf("expected status %q, got %v", "ok", got)
	}
}

func TestAuth(t *testing.T) {
	s := testServer(t)
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong bearer", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer " + testKey, http.StatusOK},
		{"api key header", "X-API-Key", testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats/conversions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			if rec := serve(s, req); rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestConvertDocxToMarkdown(t *testing.T) {
	s := testServer(t)
	rec := serve(s, uploadRequest(t, "/api/convert", "report.docx", sampleDocx(t), ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	content, _ := out["content"].(string)
	if !strings.HasPrefix(content, "# Title\n") || !strings.Contains(content, "**bold**") {
		t.Errorf("unexpected markdown %q", content)
	}
	if out["format"] != "md" {
		t.Errorf("expected format %q, got %v", "md", out["format"])
	}
}

func TestConvertDocxToText(t *testing.T) {
	s := testServer(t)
	rec := serve(s, uploadRequest(t, "/api/convert", "report.docx", sampleDocx(t), "txt"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := "Title\nSome bold text.\n"
	if got := decode(t, rec)["content"]; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestConvertMarkdownToDocx(t *testing.T) {
	s := testServer(t)
	rec := serve(s, uploadRequest(t, "/api/convert", "notes.md", []byte("hello\n"), ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != convert.ContentTypeDocx {
		t.Errorf("expected content type %q, got %q", convert.ContentTypeDocx, ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `"notes.docx"`) {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip payload")
	}
}

func TestConvertErrors(t *testing.T) {
	s := testServer(t)
	tests := []struct {
		name     string
		filename string
		data     []byte
		target   string
		want     int
	}{
		{"unsupported extension", "a.csv", []byte("x"), "", http.StatusUnsupportedMediaType},
		{"unsupported target", "a.md", []byte("x"), "txt", http.StatusUnsupportedMediaType},
		{"not a package", "a.docx", []byte("not a zip"), "", http.StatusUnprocessableEntity},
		{"too large", "a.md", bytes.Repeat([]byte("a"), 1<<20+1), "", http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, uploadRequest(t, "/api/convert", tt.filename, tt.data, tt.target))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if decode(t, rec)["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestConvertMissingFile(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("x"))
	req.Header.Set("Authorization", "Bearer "+testKey)
	if rec := serve(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestJobLifecycle(t *testing.T) {
	s := testServer(t)
	rec := serve(s, uploadRequest(t, "/api/jobs", "report.docx", sampleDocx(t), "md"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	jobID, _ := decode(t, rec)["job_id"].(string)
	if jobID == "" {
		t.Fatal("expected job id")
	}

	authed := func(path string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+testKey)
		return req
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		out := decode(t, serve(s, authed("/api/jobs/"+jobID+"/status")))
		if out["status"] == string(pipeline.StatusCompleted) {
			break
		}
		if out["status"] == string(pipeline.StatusFailed) || time.Now().After(deadline) {
			t.Fatalf("job did not complete: %v", out)
		}
		time.Sleep(5 * time.Millisecond)
	}

	res := serve(s, authed("/api/jobs/"+jobID+"/result"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got, _ := decode(t, res)["content"].(string); !strings.HasPrefix(got, "# Title\n") {
		t.Errorf("unexpected content %q", got)
	}

	if rec := serve(s, authed("/api/jobs/unknown/status")); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	stats := decode(t, serve(s, authed("/api/stats/conversions")))
	if st, _ := stats["stats"].(map[string]any); st["count"] != float64(1) {
		t.Errorf("expected one recorded conversion, got %v", stats)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.docx", "report.docx"},
		{"../../etc/passwd.md", "passwd.md"},
		{`C:\docs\a.docx`, "a.docx"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
