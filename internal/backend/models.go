package backend

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/dgallion1/tini/internal/highlight"
)

var errMissingID = errors.New("missing id")

// Document processing states reported by the backend.
const (
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusError      = "ERROR"
)

// Document is an uploaded book or paper.
type Document struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	OriginalFilename string              `json:"original_filename"`
	FileType         string              `json:"file_type"`
	FileSize         int64               `json:"file_size"`
	CloudinaryURL    string              `json:"cloudinary_url,omitempty"`
	HTMLURL          string              `json:"html_url,omitempty"`
	TotalPages       int                 `json:"total_pages,omitempty"`
	UploadDate       Timestamp           `json:"upload_date"`
	HighlightCount   int                 `json:"highlight_count"`
	ProcessingStatus string              `json:"processing_status"`
	IsHTMLReady      bool                `json:"is_html_ready"`
	Highlights       []DocumentHighlight `json:"document_highlights,omitempty"`
}

func (d *Document) validate() error {
	if d.ID == "" {
		return errMissingID
	}
	for i := range d.Highlights {
		if err := d.Highlights[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// CanHighlight reports whether the reader can show highlights for the
// document: EPUBs always, PDFs once their HTML rendition is ready.
func (d *Document) CanHighlight() bool {
	return d.FileType == "epub" || (d.FileType == "pdf" && d.IsHTMLReady)
}

// StatusText is a short human label for ProcessingStatus.
func (d *Document) StatusText() string {
	switch d.ProcessingStatus {
	case StatusUploaded:
		return "Uploaded"
	case StatusProcessing:
		return "Processing..."
	case StatusCompleted:
		return "Ready"
	case StatusFailed:
		return "Failed"
	case StatusError:
		return "Error"
	}
	return "Unknown"
}

// DocumentHighlight is a stored highlight anchored in a document.
type DocumentHighlight struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	SelectedText  string    `json:"selected_text"`
	ContextBefore string    `json:"context_before,omitempty"`
	ContextAfter  string    `json:"context_after,omitempty"`
	PageNumber    int       `json:"page_number,omitempty"`
	ChapterTitle  string    `json:"chapter_title,omitempty"`
	SectionID     string    `json:"section_id,omitempty"`
	StartOffset   int       `json:"start_offset,omitempty"`
	EndOffset     int       `json:"end_offset,omitempty"`
	X             float64   `json:"x_coordinate,omitempty"`
	Y             float64   `json:"y_coordinate,omitempty"`
	Width         float64   `json:"width,omitempty"`
	Height        float64   `json:"height,omitempty"`
	UserNote      string    `json:"user_note,omitempty"`
	Color         string    `json:"color"`
	IsFavorite    bool      `json:"is_favorite"`
	HighlightDate Timestamp `json:"highlight_date"`
}

func (h *DocumentHighlight) validate() error {
	if h.ID == "" {
		return errMissingID
	}
	if h.SelectedText == "" {
		return errors.New("highlight " + h.ID + ": missing selected_text")
	}
	return nil
}

// Record converts the highlight for reapplication.
func (h DocumentHighlight) Record() highlight.Record {
	return highlight.Record{
		ID:           h.ID,
		Color:        h.Color,
		SelectedText: h.SelectedText,
		PageNumber:   h.PageNumber,
		IsFavorite:   h.IsFavorite,
	}
}

// Records converts a slice of highlights.
func Records(hs []DocumentHighlight) []highlight.Record {
	out := make([]highlight.Record, len(hs))
	for i, h := range hs {
		out[i] = h.Record()
	}
	return out
}

// HighlightCreate is the body for creating a document highlight.
type HighlightCreate struct {
	DocumentID    string   `json:"document_id"`
	SelectedText  string   `json:"selected_text"`
	ContextBefore string   `json:"context_before,omitempty"`
	ContextAfter  string   `json:"context_after,omitempty"`
	PageNumber    int      `json:"page_number,omitempty"`
	ChapterTitle  string   `json:"chapter_title,omitempty"`
	SectionID     string   `json:"section_id,omitempty"`
	StartOffset   int      `json:"start_offset"`
	EndOffset     int      `json:"end_offset"`
	X             *float64 `json:"x_coordinate,omitempty"`
	Y             *float64 `json:"y_coordinate,omitempty"`
	Width         *float64 `json:"width,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	UserNote      string   `json:"user_note,omitempty"`
	Color         string   `json:"color"`
	IsFavorite    bool     `json:"is_favorite,omitempty"`
}

// HighlightUpdate is a partial update; nil fields are left unchanged.
type HighlightUpdate struct {
	Color      *string `json:"color,omitempty"`
	UserNote   *string `json:"user_note,omitempty"`
	IsFavorite *bool   `json:"is_favorite,omitempty"`
}

// Note is a free-form note, optionally derived from a highlight.
type Note struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Source        string         `json:"source"`
	ExtraMetadata map[string]any `json:"extra_metadata,omitempty"`
	HighlightsID  string         `json:"highlights_id,omitempty"`
	CreatedAt     Timestamp      `json:"created_at"`
	UpdatedAt     Timestamp      `json:"updated_at"`
	Tags          []Tag          `json:"tags"`
	Comments      []Comment      `json:"comments"`
}

func (n *Note) validate() error {
	if n.ID == "" {
		return errMissingID
	}
	return nil
}

// NoteInput is the body for creating or replacing a note.
type NoteInput struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Source  string   `json:"source,omitempty"`
	TagIDs  []string `json:"tag_ids,omitempty"`
}

// Comment is attached to a note.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	NoteID    string    `json:"note_id"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

func (c *Comment) validate() error {
	if c.ID == "" {
		return errMissingID
	}
	return nil
}

// Tag is a node in the tag hierarchy.
type Tag struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	Children    []Tag     `json:"children,omitempty"`
}

func (t *Tag) validate() error {
	if t.ID == "" {
		return errMissingID
	}
	if t.Name == "" {
		return errors.New("tag " + t.ID + ": missing name")
	}
	return nil
}

// TagInput creates or updates a tag. A nil ParentID is omitted; use
// Client.MoveTag to detach a tag from its parent.
type TagInput struct {
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
}

// TagQuery filters ListTags.
type TagQuery struct {
	Skip            int
	Limit           int
	ParentID        string
	IncludeChildren bool
}

func (q TagQuery) values() url.Values {
	v := url.Values{}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.ParentID != "" {
		v.Set("parent_id", q.ParentID)
	}
	if q.IncludeChildren {
		v.Set("include_children", "true")
	}
	return v
}

// Project states.
const (
	ProjectActive    = "ACTIVE"
	ProjectCompleted = "COMPLETED"
	ProjectArchived  = "ARCHIVED"
)

// Project groups notes under a folder.
type Project struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Status    string         `json:"status"`
	FolderID  string         `json:"folder_id,omitempty"`
	Folder    *ProjectFolder `json:"folder,omitempty"`
	Notes     []Note         `json:"notes"`
	Tags      []Tag          `json:"tags"`
	CreatedAt Timestamp      `json:"created_at"`
	UpdatedAt Timestamp      `json:"updated_at"`
}

func (p *Project) validate() error {
	if p.ID == "" {
		return errMissingID
	}
	return nil
}

// ProjectInput creates or updates a project.
type ProjectInput struct {
	Title    string   `json:"title,omitempty"`
	Content  string   `json:"content,omitempty"`
	Status   string   `json:"status,omitempty"`
	FolderID *string  `json:"folder_id,omitempty"`
	TagIDs   []string `json:"tag_ids,omitempty"`
}

// ProjectQuery filters ListProjects.
type ProjectQuery struct {
	Search   string
	TagIDs   []string
	FolderID string
	Status   string
	Limit    int
	Offset   int
}

func (q ProjectQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for _, id := range q.TagIDs {
		v.Add("tag_ids", id)
	}
	if q.FolderID != "" {
		v.Set("folder_id", q.FolderID)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// ProjectFolder groups projects.
type ProjectFolder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	Projects    []Project `json:"projects,omitempty"`
}

func (f *ProjectFolder) validate() error {
	if f.ID == "" {
		return errMissingID
	}
	return nil
}

// FolderInput creates or updates a project folder.
type FolderInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// FolderQuery filters ListFolders.
type FolderQuery struct {
	Limit           int
	Offset          int
	Search          string
	IncludeProjects bool
}

func (q FolderQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.IncludeProjects {
		v.Set("include_projects", "true")
	}
	return v
}
