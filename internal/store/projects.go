package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dgallion1/tini/internal/backend"
)

// ProjectsAPI is the subset of the backend client the project stores use.
type ProjectsAPI interface {
	ListProjects(ctx context.Context, q backend.ProjectQuery) ([]backend.Project, error)
	ListFolders(ctx context.Context, q backend.FolderQuery) ([]backend.ProjectFolder, error)
}

type ProjectsState struct {
	Projects []backend.Project
	Loading  bool
	Err      string
}

// Projects holds the project list.
type Projects struct {
	*Store[ProjectsState]
	api ProjectsAPI
	log *slog.Logger
}

func NewProjects(api ProjectsAPI, log *slog.Logger) *Projects {
	if log == nil {
		log = slog.Default()
	}
	return &Projects{Store: New(ProjectsState{}), api: api, log: log}
}

func projectID(p backend.Project) string { return p.ID }

// Load replaces the list. On failure the list is emptied and the error kept
// in state as well as returned.
func (s *Projects) Load(ctx context.Context) error {
	s.Update(func(st ProjectsState) ProjectsState {
		st.Loading, st.Err = true, ""
		return st
	})
	projects, err := s.api.ListProjects(ctx, backend.ProjectQuery{})
	if err != nil {
		s.log.Warn("load projects failed", "error", err)
		s.Set(ProjectsState{Err: err.Error()})
		return err
	}
	slices.SortStableFunc(projects, func(a, b backend.Project) int { return naturalCompare(a.Title, b.Title) })
	s.Set(ProjectsState{Projects: projects})
	return nil
}

// Add appends a project created elsewhere.
func (s *Projects) Add(p backend.Project) {
	s.Update(func(st ProjectsState) ProjectsState {
		st.Projects = append(slices.Clone(st.Projects), p)
		return st
	})
}

// Replace swaps in an updated project, normalizing nil tag and note lists.
func (s *Projects) Replace(p backend.Project) backend.Project {
	if p.Tags == nil {
		p.Tags = []backend.Tag{}
	}
	if p.Notes == nil {
		p.Notes = []backend.Note{}
	}
	s.Update(func(st ProjectsState) ProjectsState {
		st.Projects = replaceByID(st.Projects, projectID, p)
		return st
	})
	return p
}

func (s *Projects) ByID(id string) (backend.Project, bool) {
	for _, p := range s.Get().Projects {
		if p.ID == id {
			return p, true
		}
	}
	return backend.Project{}, false
}

func (s *Projects) ClearError() {
	s.Update(func(st ProjectsState) ProjectsState {
		st.Err = ""
		return st
	})
}

type FoldersState struct {
	Folders []backend.ProjectFolder
	Loading bool
	Err     string
}

// Folders holds the project folder list.
type Folders struct {
	*Store[FoldersState]
	api ProjectsAPI
	log *slog.Logger
}

func NewFolders(api ProjectsAPI, log *slog.Logger) *Folders {
	if log == nil {
		log = slog.Default()
	}
	return &Folders{Store: New(FoldersState{}), api: api, log: log}
}

func (s *Folders) Load(ctx context.Context) error {
	s.Update(func(st FoldersState) FoldersState {
		st.Loading, st.Err = true, ""
		return st
	})
	folders, err := s.api.ListFolders(ctx, backend.FolderQuery{})
	if err != nil {
		s.log.Warn("load project folders failed", "error", err)
		s.Set(FoldersState{Err: err.Error()})
		return err
	}
	slices.SortStableFunc(folders, func(a, b backend.ProjectFolder) int { return naturalCompare(a.Name, b.Name) })
	s.Set(FoldersState{Folders: folders})
	return nil
}
