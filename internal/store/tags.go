package store

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/dgallion1/tini/internal/backend"
)

// DefaultTagsTTL is how long a loaded tag list is served from cache.
const DefaultTagsTTL = 5 * time.Minute

// TagsAPI is the subset of the backend client the tag store uses.
type TagsAPI interface {
	ListTags(ctx context.Context, q backend.TagQuery) ([]backend.Tag, error)
	CreateTag(ctx context.Context, in backend.TagInput) (*backend.Tag, error)
	UpdateTag(ctx context.Context, id string, in backend.TagInput) (*backend.Tag, error)
	MoveTag(ctx context.Context, id, newParentID string) (*backend.Tag, error)
	DeleteTag(ctx context.Context, id string) error
}

type TagsState struct {
	Tags        []backend.Tag
	LastFetched time.Time
	Loading     bool
	Err         string
}

// Tags caches the tag list and mirrors mutations made through it.
type Tags struct {
	*Store[TagsState]
	api TagsAPI
	ttl time.Duration
	log *slog.Logger
	now func() time.Time
}

func NewTags(api TagsAPI, ttl time.Duration, log *slog.Logger) *Tags {
	if ttl <= 0 {
		ttl = DefaultTagsTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tags{
		Store: New(TagsState{}),
		api:   api,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

func tagID(t backend.Tag) string { return t.ID }

// Load fetches tags unless a non-empty list younger than the TTL is cached.
func (s *Tags) Load(ctx context.Context, force bool) error {
	cur := s.Get()
	if !force && len(cur.Tags) > 0 && s.now().Sub(cur.LastFetched) < s.ttl {
		return nil
	}

	s.Update(func(st TagsState) TagsState {
		st.Loading, st.Err = true, ""
		return st
	})
	tags, err := s.api.ListTags(ctx, backend.TagQuery{IncludeChildren: true})
	if err != nil {
		s.log.Warn("load tags failed", "error", err)
		s.Update(func(st TagsState) TagsState {
			st.Loading, st.Err = false, err.Error()
			return st
		})
		return err
	}
	sortTags(tags)
	s.Set(TagsState{Tags: tags, LastFetched: s.now()})
	return nil
}

// Refresh reloads regardless of cache age.
func (s *Tags) Refresh(ctx context.Context) error { return s.Load(ctx, true) }

func (s *Tags) Add(ctx context.Context, in backend.TagInput) (*backend.Tag, error) {
	tag, err := s.api.CreateTag(ctx, in)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.Update(func(st TagsState) TagsState {
		st.Tags = append(slices.Clone(st.Tags), *tag)
		sortTags(st.Tags)
		return st
	})
	return tag, nil
}

func (s *Tags) Edit(ctx context.Context, id string, in backend.TagInput) (*backend.Tag, error) {
	tag, err := s.api.UpdateTag(ctx, id, in)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.replace(*tag)
	return tag, nil
}

// Move reparents a tag; an empty parent makes it a root.
func (s *Tags) Move(ctx context.Context, id, newParentID string) (*backend.Tag, error) {
	tag, err := s.api.MoveTag(ctx, id, newParentID)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.replace(*tag)
	return tag, nil
}

func (s *Tags) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTag(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	s.Update(func(st TagsState) TagsState {
		st.Tags = removeByID(st.Tags, tagID, id)
		return st
	})
	return nil
}

func (s *Tags) ClearError() {
	s.Update(func(st TagsState) TagsState {
		st.Err = ""
		return st
	})
}

// Reset drops the cache.
func (s *Tags) Reset() { s.Set(TagsState{}) }

func (s *Tags) replace(tag backend.Tag) {
	s.Update(func(st TagsState) TagsState {
		st.Tags = replaceByID(st.Tags, tagID, tag)
		return st
	})
}

func (s *Tags) fail(err error) {
	s.Update(func(st TagsState) TagsState {
		st.Err = err.Error()
		return st
	})
}

func sortTags(tags []backend.Tag) {
	slices.SortStableFunc(tags, func(a, b backend.Tag) int { return naturalCompare(a.Name, b.Name) })
}

// TagNode is a tag placed in the hierarchy.
type TagNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Color    string     `json:"color,omitempty"`
	ParentID string     `json:"parent_id,omitempty"`
	Depth    int        `json:"depth"`
	Children []*TagNode `json:"children"`
}

// Hierarchy arranges a flat tag list into trees. Tags whose parent is not in
// the list, or that sit on a parent cycle, become roots. Siblings are in
// natural name order.
func Hierarchy(tags []backend.Tag) []*TagNode {
	byID := make(map[string]backend.Tag, len(tags))
	nodes := make(map[string]*TagNode, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
		nodes[t.ID] = &TagNode{ID: t.ID, Name: t.Name, Color: t.Color, ParentID: t.ParentID, Children: []*TagNode{}}
	}

	var roots []*TagNode
	for _, t := range tags {
		n := nodes[t.ID]
		if p, ok := nodes[t.ParentID]; ok && !onCycle(byID, t) {
			p.Children = append(p.Children, n)
			continue
		}
		roots = append(roots, n)
	}

	var walk func(ns []*TagNode, depth int)
	walk = func(ns []*TagNode, depth int) {
		slices.SortStableFunc(ns, func(a, b *TagNode) int { return naturalCompare(a.Name, b.Name) })
		for _, n := range ns {
			n.Depth = depth
			walk(n.Children, depth+1)
		}
	}
	walk(roots, 0)
	return roots
}

// onCycle reports whether following parents from t leads back to t.
func onCycle(byID map[string]backend.Tag, t backend.Tag) bool {
	seen := map[string]bool{}
	for cur := t.ParentID; cur != ""; {
		if cur == t.ID {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		p, ok := byID[cur]
		if !ok {
			return false
		}
		cur = p.ParentID
	}
	return false
}

// Roots returns tags without a parent.
func Roots(tags []backend.Tag) []backend.Tag {
	return ByParent(tags, "")
}

// ByParent returns the direct children of parentID.
func ByParent(tags []backend.Tag, parentID string) []backend.Tag {
	var out []backend.Tag
	for _, t := range tags {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	return out
}

func TagByID(tags []backend.Tag, id string) (backend.Tag, bool) {
	for _, t := range tags {
		if t.ID == id {
			return t, true
		}
	}
	return backend.Tag{}, false
}

// Descendants returns every tag below id, depth first.
func Descendants(tags []backend.Tag, id string) []backend.Tag {
	var out []backend.Tag
	seen := map[string]bool{id: true}
	var walk func(parent string)
	walk = func(parent string) {
		for _, t := range ByParent(tags, parent) {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
			walk(t.ID)
		}
	}
	walk(id)
	return out
}

// Depth counts parent links above tag, stopping at a missing parent or a cycle.
func Depth(tags []backend.Tag, tag backend.Tag) int {
	depth := 0
	seen := map[string]bool{tag.ID: true}
	for cur := tag; cur.ParentID != ""; {
		depth++
		parent, ok := TagByID(tags, cur.ParentID)
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		cur = parent
	}
	return depth
}
