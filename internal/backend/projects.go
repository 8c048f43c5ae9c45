package backend

import (
	"context"
	"net/http"
)

const (
	projectsPath = "/projects"
	foldersPath  = "/project-folders"
)

func (c *Client) ListProjects(ctx context.Context, q ProjectQuery) ([]Project, error) {
	return getList[Project](ctx, c, "list projects", projectsPath, q.values())
}

// ListFolderProjects returns the projects filed under a folder.
func (c *Client) ListFolderProjects(ctx context.Context, folderID string) ([]Project, error) {
	return getList[Project](ctx, c, "list folder projects", projectsPath+"/folders/"+escape(folderID)+"/projects", nil)
}

func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	return getOne[Project](ctx, c, "get project", projectsPath+"/"+escape(id), nil)
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	return sendOne[Project](ctx, c, "create project", http.MethodPost, projectsPath, in)
}

func (c *Client) UpdateProject(ctx context.Context, id string, in ProjectInput) (*Project, error) {
	return sendOne[Project](ctx, c, "update project", http.MethodPut, projectsPath+"/"+escape(id), in)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.delete(ctx, "delete project", projectsPath+"/"+escape(id))
}

// AddNoteToProject links a note. The backend replies with no body.
func (c *Client) AddNoteToProject(ctx context.Context, projectID, noteID string) error {
	_, err := c.do(ctx, "add project note", http.MethodPost, projectsPath+"/"+escape(projectID)+"/notes", nil,
		map[string]string{"note_id": noteID})
	return err
}

// RemoveNoteFromProject unlinks a note and returns the updated project.
func (c *Client) RemoveNoteFromProject(ctx context.Context, projectID, noteID string) (*Project, error) {
	return sendOne[Project](ctx, c, "remove project note", http.MethodDelete, noteInProject(projectID, noteID), nil)
}

// HideNoteInProject hides a linked note without unlinking it.
func (c *Client) HideNoteInProject(ctx context.Context, projectID, noteID string) (*Project, error) {
	return sendOne[Project](ctx, c, "hide project note", http.MethodPost, noteInProject(projectID, noteID)+"/hide", nil)
}

func (c *Client) UnhideNoteInProject(ctx context.Context, projectID, noteID string) (*Project, error) {
	return sendOne[Project](ctx, c, "unhide project note", http.MethodDelete, noteInProject(projectID, noteID)+"/hide", nil)
}

func noteInProject(projectID, noteID string) string {
	return projectsPath + "/" + escape(projectID) + "/notes/" + escape(noteID)
}

func (c *Client) ListFolders(ctx context.Context, q FolderQuery) ([]ProjectFolder, error) {
	return getList[ProjectFolder](ctx, c, "list project folders", foldersPath, q.values())
}

func (c *Client) GetFolder(ctx context.Context, id string) (*ProjectFolder, error) {
	return getOne[ProjectFolder](ctx, c, "get project folder", foldersPath+"/"+escape(id), nil)
}

func (c *Client) CreateFolder(ctx context.Context, in FolderInput) (*ProjectFolder, error) {
	return sendOne[ProjectFolder](ctx, c, "create project folder", http.MethodPost, foldersPath, in)
}

func (c *Client) UpdateFolder(ctx context.Context, id string, in FolderInput) (*ProjectFolder, error) {
	return sendOne[ProjectFolder](ctx, c, "update project folder", http.MethodPut, foldersPath+"/"+escape(id), in)
}

func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.delete(ctx, "delete project folder", foldersPath+"/"+escape(id))
}
