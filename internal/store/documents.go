package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgallion1/tini/internal/backend"
	"github.com/dgallion1/tini/internal/highlight"
	"github.com/dgallion1/tini/internal/selection"
)

// ErrNoDocument is returned when an operation needs an open document.
var ErrNoDocument = errors.New("no document open")

// DocumentsAPI is the subset of the backend client the document store uses.
type DocumentsAPI interface {
	ListDocuments(ctx context.Context) ([]backend.Document, error)
	GetDocument(ctx context.Context, id string) (*backend.Document, error)
	ListDocumentHighlights(ctx context.Context, documentID string) ([]backend.DocumentHighlight, error)
	CreateHighlight(ctx context.Context, req backend.HighlightCreate) (*backend.DocumentHighlight, error)
	DeleteHighlight(ctx context.Context, id string) error
}

type DocumentsState struct {
	Documents     []backend.Document
	Current       *backend.Document
	Highlights    []backend.DocumentHighlight
	SelectedText  string
	HighlightMode bool
	Err           string
}

// Documents tracks the document list, the open document and its highlights.
type Documents struct {
	*Store[DocumentsState]
	api DocumentsAPI
	log *slog.Logger
}

func NewDocuments(api DocumentsAPI, log *slog.Logger) *Documents {
	if log == nil {
		log = slog.Default()
	}
	return &Documents{Store: New(DocumentsState{}), api: api, log: log}
}

func (s *Documents) Load(ctx context.Context) error {
	docs, err := s.api.ListDocuments(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}
	slices.SortStableFunc(docs, func(a, b backend.Document) int { return naturalCompare(a.Title, b.Title) })
	s.Update(func(st DocumentsState) DocumentsState {
		st.Documents, st.Err = docs, ""
		return st
	})
	return nil
}

// Open makes a document current and loads its highlights.
func (s *Documents) Open(ctx context.Context, id string) (*backend.Document, error) {
	doc, err := s.api.GetDocument(ctx, id)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	hs, err := s.api.ListDocumentHighlights(ctx, id)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	s.Update(func(st DocumentsState) DocumentsState {
		st.Current, st.Highlights, st.Err = doc, hs, ""
		st.SelectedText = ""
		return st
	})
	return doc, nil
}

// Select records the reader's current selection text.
func (s *Documents) Select(desc *selection.Descriptor) {
	text := ""
	if desc != nil {
		text = desc.SelectedText
	}
	s.Update(func(st DocumentsState) DocumentsState {
		st.SelectedText = text
		return st
	})
}

func (s *Documents) SetHighlightMode(on bool) {
	s.Update(func(st DocumentsState) DocumentsState {
		st.HighlightMode = on
		return st
	})
}

// CreateHighlight persists a selection against the open document.
func (s *Documents) CreateHighlight(ctx context.Context, desc *selection.Descriptor, color string) (*backend.DocumentHighlight, error) {
	cur := s.Get().Current
	if cur == nil {
		return nil, ErrNoDocument
	}
	if desc == nil {
		return nil, fmt.Errorf("create highlight: empty selection")
	}
	h, err := s.api.CreateHighlight(ctx, NewHighlightCreate(cur.ID, desc, color))
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	s.log.Info("highlight created", "document_id", cur.ID, "highlight_id", h.ID)
	s.Update(func(st DocumentsState) DocumentsState {
		st.Highlights = append(slices.Clone(st.Highlights), *h)
		st.SelectedText = ""
		return st
	})
	return h, nil
}

func (s *Documents) DeleteHighlight(ctx context.Context, id string) error {
	if err := s.api.DeleteHighlight(ctx, id); err != nil {
		s.setErr(err)
		return err
	}
	s.Update(func(st DocumentsState) DocumentsState {
		st.Highlights = removeByID(st.Highlights, func(h backend.DocumentHighlight) string { return h.ID }, id)
		return st
	})
	return nil
}

// Render overlays the open document's highlights onto content.
func (s *Documents) Render(content string) string {
	return highlight.Apply(content, backend.Records(s.Get().Highlights))
}

// Statistics summarizes the open document's highlights.
func (s *Documents) Statistics() highlight.Statistics {
	return highlight.Summarize(backend.Records(s.Get().Highlights))
}

func (s *Documents) setErr(err error) {
	s.log.Warn("document store", "error", err)
	s.Update(func(st DocumentsState) DocumentsState {
		st.Err = err.Error()
		return st
	})
}

// NewHighlightCreate builds the create payload for a selection.
func NewHighlightCreate(documentID string, desc *selection.Descriptor, color string) backend.HighlightCreate {
	req := backend.HighlightCreate{
		DocumentID:    documentID,
		SelectedText:  desc.SelectedText,
		ContextBefore: desc.ContextBefore,
		ContextAfter:  desc.ContextAfter,
		PageNumber:    desc.PageNumber,
		ChapterTitle:  desc.ChapterTitle,
		SectionID:     desc.StartContainerID,
		StartOffset:   desc.StartOffset,
		EndOffset:     desc.EndOffset,
		Color:         highlight.ColorValue(color),
	}
	if r := desc.BoundingRect; r != nil {
		x, y, w, h := r.X, r.Y, r.Width, r.Height
		req.X, req.Y, req.Width, req.Height = &x, &y, &w, &h
	}
	return req
}
