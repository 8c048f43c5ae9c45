package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/tini/internal/backend"
	"github.com/dgallion1/tini/internal/highlight"
	"github.com/dgallion1/tini/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleHighlightStatistics summarizes a document's stored highlights.
func (s *Server) handleHighlightStatistics(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		jsonError(w, "backend not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	hs, err := s.backend.ListDocumentHighlights(r.Context(), docID)
	if err != nil {
		s.backendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": docID,
		"statistics":  highlight.Summarize(backend.Records(hs)),
	})
}

// handleTagTree returns the tag hierarchy, served from the tag cache.
func (s *Server) handleTagTree(w http.ResponseWriter, r *http.Request) {
	if s.tags == nil {
		jsonError(w, "backend not configured", http.StatusServiceUnavailable)
		return
	}
	force := r.URL.Query().Get("refresh") == "true"
	if err := s.tags.Load(r.Context(), force); err != nil {
		s.backendError(w, err)
		return
	}
	tree := store.Hierarchy(s.tags.Get().Tags)
	if tree == nil {
		tree = []*store.TagNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tree})
}

// backendError maps a backend failure onto a response. Upstream client
// errors pass through; everything else is a bad gateway.
func (s *Server) backendError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if code := backend.StatusOf(err); code >= 400 && code < 500 {
		status = code
	}
	s.log.Warn("backend call failed", "error", err, "upstream_status", backend.StatusOf(err))

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		jsonError(w, apiErr.Message, status)
		return
	}
	jsonError(w, err.Error(), status)
}
