package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avashisht/veridoc/internal/model"
)

type fakeProcessor struct {
	report *model.Report
	err    error
	gotDoc model.Document
}

func (f *fakeProcessor) Process(ctx context.Context, doc model.Document) (*model.Report, error) {
	f.gotDoc = doc
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func testServer(p Processor) *Server {
	return New(model.ServerConfig{
		ListenAddr:      ":0",
		MaxUploadBytes:  1 << 20,
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: time.Second,
	}, p)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv := testServer(&fakeProcessor{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVerifyEndpointReturnsReport(t *testing.T) {
	proc := &fakeProcessor{report: &model.Report{
		Filename:     "cert.png",
		FinalVerdict: model.VerdictVerified,
	}}
	srv := testServer(proc)

	body, contentType := multipartUpload(t, "file", "cert.png", []byte("image bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/verify", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var report model.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if report.FinalVerdict != model.VerdictVerified {
		t.Errorf("FinalVerdict = %q", report.FinalVerdict)
	}
	if proc.gotDoc.Filename != "cert.png" {
		t.Errorf("document filename = %q", proc.gotDoc.Filename)
	}
}

func TestVerifyEndpointMissingFile(t *testing.T) {
	srv := testServer(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/verify", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVerifyEndpointValidationError(t *testing.T) {
	srv := testServer(&fakeProcessor{err: &model.InputValidationError{Reason: "unsupported format"}})

	body, contentType := multipartUpload(t, "file", "cert.txt", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/v1/verify", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["error"] == "" {
		t.Error("missing error message")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	srv := testServer(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Errorf("X-Request-ID = %q", got)
	}
}
