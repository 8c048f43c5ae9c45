package backend

import (
	"context"
	"net/http"
)

func (c *Client) ListNotes(ctx context.Context) ([]Note, error) {
	return getList[Note](ctx, c, "list notes", "/notes/", nil)
}

func (c *Client) GetNote(ctx context.Context, id string) (*Note, error) {
	return getOne[Note](ctx, c, "get note", "/notes/"+escape(id), nil)
}

func (c *Client) CreateNote(ctx context.Context, in NoteInput) (*Note, error) {
	return sendOne[Note](ctx, c, "create note", http.MethodPost, "/notes/", in)
}

func (c *Client) UpdateNote(ctx context.Context, id string, in NoteInput) (*Note, error) {
	return sendOne[Note](ctx, c, "update note", http.MethodPut, "/notes/"+escape(id), in)
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.delete(ctx, "delete note", "/notes/"+escape(id))
}

// AddComment attaches a comment to a note.
func (c *Client) AddComment(ctx context.Context, noteID, content string) (*Comment, error) {
	body := map[string]string{"content": content}
	return sendOne[Comment](ctx, c, "add comment", http.MethodPost, "/notes/"+escape(noteID)+"/comments/", body)
}
