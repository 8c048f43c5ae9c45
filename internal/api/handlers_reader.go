package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/dgallion1/tini/internal/doctree"
	"github.com/dgallion1/tini/internal/dom"
	"github.com/dgallion1/tini/internal/highlight"
	"github.com/dgallion1/tini/internal/parser"
	"github.com/dgallion1/tini/internal/selection"
)

type chaptersRequest struct {
	Content string `json:"content"`
	// Format forces "markup" or "text"; empty classifies the content.
	Format string `json:"format,omitempty"`
}

// handleChapters segments a document. It accepts either a multipart upload
// in the "file" field or a JSON body with raw content.
func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		s.chaptersFromFile(w, r)
		return
	}

	var req chaptersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var book *doctree.Book
	switch req.Format {
	case "":
		book = s.seg.Book(req.Content)
	case "markup":
		book = &doctree.Book{Metadata: s.seg.Metadata(req.Content), Chapters: s.seg.MarkupChapters(req.Content)}
	case "text":
		book = &doctree.Book{Chapters: s.seg.TextChapters(req.Content)}
	default:
		jsonError(w, fmt.Sprintf("unknown format %q", req.Format), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) chaptersFromFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, s.log)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	book, err := p.Parse(file, filename)
	if err != nil {
		s.log.Warn("parse upload failed", "filename", filename, "error", err)
		jsonError(w, "parse failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type applyRequest struct {
	Content    string             `json:"content"`
	Highlights []highlight.Record `json:"highlights"`
}

func (s *Server) handleApplyHighlights(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	content, matched := highlight.ApplyMatched(req.Content, req.Highlights)
	if matched == nil {
		matched = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content":   content,
		"requested": len(req.Highlights),
		"applied":   len(matched),
		"matched":   matched,
	})
}

func (s *Server) handleStripHighlights(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": highlight.Strip(req.Content)})
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": highlight.DefaultColor,
		"colors":  highlight.Colors(),
	})
}

type selectionRequest struct {
	HTML       string          `json:"html"`
	Text       string          `json:"text"`
	Occurrence int             `json:"occurrence"`
	Bounds     *selection.Rect `json:"bounds,omitempty"`
}

// handleSelection locates text in a rendered page and returns the
// descriptor a reader selection of it would produce.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	doc, err := dom.Parse(req.HTML)
	if err != nil {
		jsonError(w, "invalid html: "+err.Error(), http.StatusBadRequest)
		return
	}
	rng := selection.FindText(doc, req.Text, req.Occurrence)
	if rng == nil {
		jsonError(w, "text not found", http.StatusNotFound)
		return
	}
	rng.Bounds = req.Bounds

	desc := selection.Extract(selection.StaticSource{Range: rng})
	if desc == nil {
		jsonError(w, "selection is empty", http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}
