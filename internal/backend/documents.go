package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// ListDocuments returns every document.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	return getList[Document](ctx, c, "list documents", "/documents/", nil)
}

// GetDocument returns one document including its highlights.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	return getOne[Document](ctx, c, "get document", "/documents/"+escape(id), nil)
}

// UploadDocument sends a multipart form with "file" and "title" fields.
func (c *Client) UploadDocument(ctx context.Context, title, filename string, r io.Reader) (*Document, error) {
	const op = "upload document"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.WriteField("title", title); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+APIPrefix+"/documents/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	doc, err := decodeOne[Document](op, data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.delete(ctx, "delete document", "/documents/"+escape(id))
}

// ListDocumentHighlights returns the highlights stored for one document.
func (c *Client) ListDocumentHighlights(ctx context.Context, documentID string) ([]DocumentHighlight, error) {
	return getList[DocumentHighlight](ctx, c, "list document highlights", "/documents/"+escape(documentID)+"/highlights", nil)
}

// GetHighlight returns a single highlight.
func (c *Client) GetHighlight(ctx context.Context, id string) (*DocumentHighlight, error) {
	return getOne[DocumentHighlight](ctx, c, "get highlight", "/documents/highlights/"+escape(id), nil)
}

// CreateHighlight stores a new highlight.
func (c *Client) CreateHighlight(ctx context.Context, req HighlightCreate) (*DocumentHighlight, error) {
	return sendOne[DocumentHighlight](ctx, c, "create highlight", http.MethodPost, "/documents/highlights", req)
}

// UpdateHighlight patches color, note or favorite flag.
func (c *Client) UpdateHighlight(ctx context.Context, id string, req HighlightUpdate) (*DocumentHighlight, error) {
	return sendOne[DocumentHighlight](ctx, c, "update highlight", http.MethodPatch, "/documents/highlights/"+escape(id), req)
}

// DeleteHighlight removes a highlight.
func (c *Client) DeleteHighlight(ctx context.Context, id string) error {
	return c.delete(ctx, "delete highlight", "/documents/highlights/"+escape(id))
}

// SearchHighlights runs a text search across all highlights.
func (c *Client) SearchHighlights(ctx context.Context, query string) ([]DocumentHighlight, error) {
	return getList[DocumentHighlight](ctx, c, "search highlights", "/documents/highlights/search", url.Values{"q": {query}})
}
