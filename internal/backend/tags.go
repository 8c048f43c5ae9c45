package backend

import (
	"context"
	"net/http"
)

const tagsPath = "/tags"

// ListTags returns tags matching q.
func (c *Client) ListTags(ctx context.Context, q TagQuery) ([]Tag, error) {
	return getList[Tag](ctx, c, "list tags", tagsPath, q.values())
}

// RootTags returns tags without a parent.
func (c *Client) RootTags(ctx context.Context) ([]Tag, error) {
	return getList[Tag](ctx, c, "list root tags", tagsPath+"/roots", nil)
}

func (c *Client) GetTag(ctx context.Context, id string) (*Tag, error) {
	return getOne[Tag](ctx, c, "get tag", tagsPath+"/"+escape(id), nil)
}

// TagHierarchy returns a tag with its children populated.
func (c *Client) TagHierarchy(ctx context.Context, id string) (*Tag, error) {
	return getOne[Tag](ctx, c, "get tag hierarchy", tagsPath+"/"+escape(id)+"/hierarchy", nil)
}

func (c *Client) CreateTag(ctx context.Context, in TagInput) (*Tag, error) {
	return sendOne[Tag](ctx, c, "create tag", http.MethodPost, tagsPath, in)
}

func (c *Client) UpdateTag(ctx context.Context, id string, in TagInput) (*Tag, error) {
	return sendOne[Tag](ctx, c, "update tag", http.MethodPut, tagsPath+"/"+escape(id), in)
}

// MoveTag reparents a tag. An empty newParentID makes it a root tag.
func (c *Client) MoveTag(ctx context.Context, id, newParentID string) (*Tag, error) {
	body := map[string]any{"parent_id": nil}
	if newParentID != "" {
		body["parent_id"] = newParentID
	}
	return sendOne[Tag](ctx, c, "move tag", http.MethodPut, tagsPath+"/"+escape(id), body)
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.delete(ctx, "delete tag", tagsPath+"/"+escape(id))
}
