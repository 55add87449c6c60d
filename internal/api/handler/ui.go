package handler

import (
	"net/http"

	"github.com/iconidentify/tokgrabba/pkg/ui"
)

// UIHandler serves the status page.
type UIHandler struct{}

// NewUIHandler creates a new UI handler.
func NewUIHandler() *UIHandler {
	return &UIHandler{}
}

// Status serves the run history dashboard.
func (h *UIHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(ui.StatusHTML)
}
