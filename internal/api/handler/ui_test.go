package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUIHandler_Status(t *testing.T) {
	h := NewUIHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/api/v1/runs") {
		t.Error("body should be the status page")
	}
}
