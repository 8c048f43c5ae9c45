package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", 5*time.Second)
}

func TestListDocuments_DecodesTimestamps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/documents/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.Write([]byte(`[{"id":"d1","title":"Book","file_type":"epub","upload_date":"2024-03-01T10:20:30.123456","processing_status":"COMPLETED"}]`))
	})

	docs, err := c.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	want := time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)
	if !docs[0].UploadDate.Equal(want) {
		t.Errorf("expected %v, got %v", want, docs[0].UploadDate.Time)
	}
	if !docs[0].CanHighlight() || docs[0].StatusText() != "Ready" {
		t.Errorf("unexpected derived fields: can=%v status=%q", docs[0].CanHighlight(), docs[0].StatusText())
	}
}

func TestAPIError_DetailAndMessage(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   string
	}{
		{404, `{"detail":"Document not found"}`, "Document not found"},
		{422, `{"detail":[{"msg":"field required"},{"msg":"too long"}]}`, "field required; too long"},
		{400, `{"message":"bad input"}`, "bad input"},
		{500, `upstream exploded`, "upstream exploded"},
		{502, ``, "502 Bad Gateway"},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		})
		_, err := c.GetDocument(context.Background(), "x")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %T %v", err, err)
		}
		if apiErr.Status != tc.status || apiErr.Message != tc.want {
			t.Errorf("expected %d %q, got %d %q", tc.status, tc.want, apiErr.Status, apiErr.Message)
		}
	}
}

func TestNetworkErrorHasStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "", time.Second)
	_, err := c.ListNotes(context.Background())
	if StatusOf(err) != 0 {
		t.Fatalf("expected status 0, got %d (%v)", StatusOf(err), err)
	}
	if !strings.Contains(err.Error(), "network error") {
		t.Errorf("expected network error message, got %v", err)
	}
	if snap := c.Stats(); snap.Count != 1 || snap.Failures != 1 {
		t.Errorf("expected one failed call recorded, got %+v", snap)
	}
}

func TestIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"nope"}`, http.StatusNotFound)
	})
	_, err := c.GetTag(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if StatusOf(errors.New("other")) != -1 {
		t.Error("expected -1 for non-API errors")
	}
}

func TestDecodeError_SchemaViolation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"t1","name":"ok"},{"id":"t2"}]`))
	})
	_, err := c.ListTags(context.Background(), TagQuery{})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "item 1") {
		t.Errorf("expected failing item index in error, got %v", err)
	}
}

func TestDecodeError_BadTimestamp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"n1","created_at":"yesterday"}`))
	})
	_, err := c.GetNote(context.Background(), "n1")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestEmptyResponses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.DeleteProject(context.Background(), "p1"); err != nil {
		t.Errorf("unexpected error on 204: %v", err)
	}
	p, err := c.HideNoteInProject(context.Background(), "p1", "n1")
	if err != nil {
		t.Fatalf("unexpected error on empty 200: %v", err)
	}
	if p == nil || p.ID != "" {
		t.Errorf("expected zero project, got %+v", p)
	}
}

func TestTagQueryAndMove(t *testing.T) {
	var gotQuery string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gotQuery = r.URL.RawQuery
			w.Write([]byte(`[]`))
		case http.MethodPut:
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Write([]byte(`{"id":"t1","name":"child"}`))
		}
	})

	if _, err := c.ListTags(context.Background(), TagQuery{Limit: 10, IncludeChildren: true}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "include_children=true&limit=10" {
		t.Errorf("unexpected query %q", gotQuery)
	}

	if _, err := c.MoveTag(context.Background(), "t1", ""); err != nil {
		t.Fatalf("move: %v", err)
	}
	if v, ok := gotBody["parent_id"]; !ok || v != nil {
		t.Errorf("expected explicit null parent_id, got %v", gotBody)
	}
}

func TestUploadDocument_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/documents/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("title") != "My Book" {
			t.Errorf("expected title field, got %q", r.FormValue("title"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "book.epub" || string(data) != "PK..." {
			t.Errorf("unexpected file %q %q", hdr.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"d9","title":"My Book","file_type":"epub"}`))
	})

	doc, err := c.UploadDocument(context.Background(), "My Book", "book.epub", strings.NewReader("PK..."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "d9" {
		t.Errorf("expected id d9, got %q", doc.ID)
	}
}

func TestCreateHighlight_Body(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/documents/highlights" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"h1","document_id":"d1","selected_text":"hello","color":"#ffff00","highlight_date":"2024-01-02T03:04:05Z"}`))
	})

	h, err := c.CreateHighlight(context.Background(), HighlightCreate{DocumentID: "d1", SelectedText: "hello", Color: "#ffff00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["selected_text"] != "hello" || got["start_offset"] != float64(0) {
		t.Errorf("unexpected request body %v", got)
	}
	if _, ok := got["x_coordinate"]; ok {
		t.Error("expected nil coordinates to be omitted")
	}
	rec := h.Record()
	if rec.ID != "h1" || rec.SelectedText != "hello" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestSearchHighlightsEscapesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "a&b c" {
			t.Errorf("expected decoded query %q, got %q", "a&b c", q)
		}
		w.Write([]byte(`[]`))
	})
	if _, err := c.SearchHighlights(context.Background(), "a&b c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{"2024-05-06T07:08:09Z", "2024-05-06T07:08:09+02:00", "2024-05-06T07:08:09", "2024-05-06 07:08:09.5", "2024-05-06"} {
		if _, err := ParseTimestamp(s); err != nil {
			t.Errorf("ParseTimestamp(%q): %v", s, err)
		}
	}
	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.IsZero() {
		t.Errorf("expected zero from null, got %v %v", ts, err)
	}
	out, _ := json.Marshal(ts)
	if string(out) != "null" {
		t.Errorf("expected null for zero timestamp, got %s", out)
	}
}
