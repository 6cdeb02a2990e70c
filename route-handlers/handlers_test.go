package routehandlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wuxia2kindle/wuxia2kindle/ingestion"
	"github.com/wuxia2kindle/wuxia2kindle/webutil"
)

// Validation failures must be rejected before any repository call, so
// these handlers are constructed without repositories on purpose: a
// test that reaches the database panics on the nil pool and fails.

func postRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func requireHTTPCode(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var httpErr *webutil.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.Code != want {
		t.Errorf("expected status %d, got %d (%s)", want, httpErr.Code, httpErr.Message)
	}
}

func TestEnqueueExportRejectsInvalidPayloads(t *testing.T) {
	handler := NewExportHandler(nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"book_id": `},
		{"missing book id", `{"from": 1, "to": 3}`},
		{"zero from", `{"book_id": 1, "from": 0, "to": 3}`},
		{"zero to", `{"book_id": 1, "from": 1, "to": 0}`},
		{"inverted range", `{"book_id": 1, "from": 5, "to": 2}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := handler.HandleEnqueueExport(httptest.NewRecorder(), postRequest(tc.body))
			requireHTTPCode(t, err, http.StatusBadRequest)
		})
	}
}

func TestAddChapterRejectsInvalidPayloads(t *testing.T) {
	handler := NewChapterHandler(nil, nil, ingestion.NewProcessor())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"book": `},
		{"missing book", `{"name": "Ch 1", "content": "<p>x</p>", "number_in_book": 1}`},
		{"zero chapter number", `{"book": "B", "name": "Ch 1", "content": "<p>x</p>", "number_in_book": 0}`},
		{"empty content", `{"book": "B", "name": "Ch 1", "content": "", "number_in_book": 1}`},
		{"content with no text", `{"book": "B", "name": "Ch 1", "content": "<script>alert(1)</script>", "number_in_book": 1}`},
		{"missing name", `{"book": "B", "content": "<p>x</p>", "number_in_book": 1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := handler.HandleAddChapter(httptest.NewRecorder(), postRequest(tc.body))
			requireHTTPCode(t, err, http.StatusBadRequest)
		})
	}
}

func TestBookPathIDMustBePositiveInteger(t *testing.T) {
	handler := NewBookHandler(nil, nil)

	for _, raw := range []string{"abc", "0", "-3", "1.5"} {
		t.Run(raw, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", raw)
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`))
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			err := handler.HandleUpdateBook(httptest.NewRecorder(), req)
			requireHTTPCode(t, err, http.StatusBadRequest)
		})
	}
}
