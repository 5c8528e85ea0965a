package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/runs/inmemory"
)

func newEmailHandler(reg *inmemory.Registry, llm *stubProvider) *EmailHandler {
	return &EmailHandler{CVs: reg, LLM: llm, Logger: log.New(io.Discard, "", 0)}
}

func postJSON(e *echo.Echo, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGenerateEmailRejectsUnknownType(t *testing.T) {
	e := echo.New()
	h := newEmailHandler(inmemory.New(), &stubProvider{})

	ctx, _ := postJSON(e, "/api/email/generate", `{"email_type":"fan_mail","cv_id":"cv-1"}`)
	err := h.generate(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGenerateEmailUnknownCV(t *testing.T) {
	e := echo.New()
	h := newEmailHandler(inmemory.New(), &stubProvider{})

	ctx, _ := postJSON(e, "/api/email/generate", `{"email_type":"colab","cv_id":"missing"}`)
	err := h.generate(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestGenerateEmail(t *testing.T) {
	e := echo.New()
	reg := inmemory.New()
	reg.StoreCV(runs.CVRecord{
		CVID:      "cv-1",
		Filename:  "cv.txt",
		Text:      "robotics background",
		Concepts:  []string{"robotics"},
		CreatedAt: time.Now().UTC(),
	})
	h := newEmailHandler(reg, &stubProvider{email: "Dear Professor Byron, ..."})

	ctx, rec := postJSON(e, "/api/email/generate",
		`{"email_type":"reach_out","cv_id":"cv-1","professor_name":"Ada Byron","professor_context":"works on analytical engines"}`)
	if err := h.generate(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}

	var resp EmailGenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Email generated successfully" {
		t.Fatalf("message %q", resp.Message)
	}
	if resp.Content != "Dear Professor Byron, ..." {
		t.Fatalf("content %q", resp.Content)
	}
}

func TestSendEmailAcknowledgesOnly(t *testing.T) {
	e := echo.New()
	h := newEmailHandler(inmemory.New(), &stubProvider{})

	ctx, rec := postJSON(e, "/api/email/send",
		`{"email_content":"hello","recipient_email":"prof@example.edu"}`)
	if err := h.send(ctx); err != nil {
		t.Fatalf("send: %v", err)
	}

	var resp EmailSendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "pending" {
		t.Fatalf("status %q, want pending", resp.Status)
	}
}

func TestSendEmailRequiresRecipient(t *testing.T) {
	e := echo.New()
	h := newEmailHandler(inmemory.New(), &stubProvider{})

	ctx, _ := postJSON(e, "/api/email/send", `{"email_content":"hello"}`)
	err := h.send(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
