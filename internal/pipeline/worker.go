package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/tini/internal/backend"
	"github.com/dgallion1/tini/internal/parser"
)

// Uploader forwards a document to the backend.
type Uploader interface {
	UploadDocument(ctx context.Context, title, filename string, r io.Reader) (*backend.Document, error)
}

// Worker processes a single document job.
type Worker struct {
	uploader Uploader
	log      *slog.Logger
}

func NewWorker(uploader Uploader, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{uploader: uploader, log: log}
}

// Process parses the job locally when a parser exists for its kind, then
// forwards it to the backend when an uploader is configured.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	data := job.FileData()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	parsed := false
	p, err := parser.ForFile(job.Filename, log)
	switch {
	case errors.Is(err, parser.ErrUnsupported):
		log.Info("no local parser, skipping segmentation")
	case err != nil:
		job.AddError(err.Error())
	default:
		book, err := p.Parse(bytes.NewReader(data), job.Filename)
		if err != nil {
			log.Error("parse failed", "error", err)
			job.AddError(fmt.Sprintf("parse: %s", err))
			break
		}
		if job.Title != "" {
			book.Metadata.Title = job.Title
		}
		job.SetBook(book)
		parsed = true
		log.Info("parsed document", "chapters", len(book.Chapters))
	}

	if ctx.Err() != nil {
		job.AddError(ctx.Err().Error())
		job.SetStatus(StatusFailed, "cancelled")
		return
	}

	// Phase 2: Upload
	uploaded := false
	if w.uploader != nil {
		job.SetStatus(StatusUploading, "uploading")
		doc, err := w.uploader.UploadDocument(ctx, job.Title, job.Filename, bytes.NewReader(data))
		if err != nil {
			log.Error("upload failed", "error", err, "status", backend.StatusOf(err))
			job.AddError(fmt.Sprintf("upload: %s", err))
		} else {
			job.SetDocumentID(doc.ID)
			uploaded = true
			log.Info("uploaded document", "document_id", doc.ID)
		}
	}

	hadErrors := job.ErrorCount() > 0
	switch {
	case !hadErrors && (parsed || uploaded):
		job.SetStatus(StatusCompleted, "done")
	case hadErrors && (parsed || uploaded):
		job.SetStatus(StatusPartial, "done")
	case !hadErrors:
		job.AddError("nothing to do: no local parser and no backend configured")
		job.SetStatus(StatusFailed, "parsing")
	default:
		job.SetStatus(StatusFailed, "done")
	}
}
