package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/tini/internal/backend"
	"github.com/dgallion1/tini/internal/config"
	"github.com/dgallion1/tini/internal/pipeline"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() config.Config {
	return config.Config{
		Port:           "8090",
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
		JobTTL:         time.Hour,
		TagsCacheTTL:   time.Minute,
	}
}

func newTestServer(t *testing.T, cfg config.Config, client *backend.Client) *Server {
	t.Helper()
	orch := pipeline.NewOrchestrator(cfg, nil, quietLog)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, client, quietLog, cfg)
}

func doJSON(t *testing.T, s http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" || body["backend"] != false {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	s := newTestServer(t, cfg, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/highlights/colors", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/highlights/colors", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/highlights/colors", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("expected health to stay public, got %d", rec.Code)
	}
}

type bookResponse struct {
	Metadata struct {
		Title string `json:"title"`
	} `json:"metadata"`
	Chapters []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Content string `json:"content"`
		Order   int    `json:"order"`
	} `json:"chapters"`
}

func TestChapters_JSON(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	markup := `<html><head><title>Book</title></head><body>` +
		`<div class="chapter"><h2>Arrival</h2><p>One.</p></div>` +
		`<div class="chapter"><h2>Departure</h2><p>Two.</p></div></body></html>`
	rec := doJSON(t, s, http.MethodPost, "/api/v1/chapters", map[string]string{"content": markup})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var book bookResponse
	decode(t, rec, &book)
	if len(book.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(book.Chapters))
	}
	if book.Chapters[1].Title != "Departure" || book.Chapters[1].ID != "chapter-2" {
		t.Errorf("unexpected second chapter: %+v", book.Chapters[1])
	}
	if book.Metadata.Title != "Book" {
		t.Errorf("expected metadata title Book, got %q", book.Metadata.Title)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/chapters", map[string]string{"content": "", "format": "text"})
	decode(t, rec, &book)
	if len(book.Chapters) != 1 || book.Chapters[0].Title != "Document" {
		t.Errorf("expected single Document chapter, got %+v", book.Chapters)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/chapters", map[string]string{"content": "x", "format": "pdf"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}
}

func TestChapters_Multipart(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	body, ct := multipartBody(t, nil, "notes.md", "# One\n\nfirst\n\n# Two\n\nsecond\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chapters", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var book bookResponse
	decode(t, rec, &book)
	if len(book.Chapters) != 2 || book.Chapters[0].Title != "One" {
		t.Errorf("unexpected chapters: %+v", book.Chapters)
	}

	body, ct = multipartBody(t, nil, "book.epub", "PK")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/chapters", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for epub, got %d", rec.Code)
	}
}

func TestApplyAndStripHighlights(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := map[string]any{
		"content": "<p>hello world</p>",
		"highlights": []map[string]any{
			{"id": "h1", "color": "#ffff00", "selected_text": "world"},
			{"id": "h2", "color": "#ffff00", "selected_text": "absent"},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/api/v1/highlights/apply", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		Content   string   `json:"content"`
		Requested int      `json:"requested"`
		Applied   int      `json:"applied"`
		Matched   []string `json:"matched"`
	}
	decode(t, rec, &out)
	if out.Requested != 2 || out.Applied != 1 {
		t.Errorf("expected 2 requested and 1 applied, got %d and %d", out.Requested, out.Applied)
	}
	if len(out.Matched) != 1 || out.Matched[0] != "h1" {
		t.Errorf("expected matched [h1], got %v", out.Matched)
	}
	want := `<p>hello <mark class="highlight" style="background-color: #ffff00;" data-highlight-id="h1">world</mark></p>`
	if out.Content != want {
		t.Errorf("expected %q, got %q", want, out.Content)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/highlights/strip", map[string]string{"content": out.Content})
	decode(t, rec, &out)
	if out.Content != "<p>hello world</p>" {
		t.Errorf("expected stripped content, got %q", out.Content)
	}
}

func TestSelection(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	page := `<div class="page-4"><h2>Intro</h2><p id="p1">Hello brave new world</p></div>`
	rec := doJSON(t, s, http.MethodPost, "/api/v1/selection", map[string]any{"html": page, "text": "brave new"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var desc struct {
		SelectedText string `json:"selected_text"`
		StartID      string `json:"start_container_id"`
		StartOffset  int    `json:"start_offset"`
		EndOffset    int    `json:"end_offset"`
		Page         int    `json:"page_number"`
		Chapter      string `json:"chapter_title"`
	}
	decode(t, rec, &desc)
	if desc.SelectedText != "brave new" || desc.StartID != "p1" {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	if desc.StartOffset != 6 || desc.EndOffset != 15 {
		t.Errorf("expected offsets 6..15, got %d..%d", desc.StartOffset, desc.EndOffset)
	}
	if desc.Page != 4 {
		t.Errorf("expected page 4, got %d", desc.Page)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/selection", map[string]any{"html": page, "text": "absent"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/v1/selection", map[string]any{"html": page})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without text, got %d", rec.Code)
	}
}

func TestIngest_ParsesAndServesChapters(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	body, ct := multipartBody(t, map[string]string{"title": "Story"}, "story.txt", "Chapter 1\nA.\n\nChapter 2\nB.\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var queued struct {
		JobID   string `json:"job_id"`
		Kind    string `json:"kind"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &queued)
	if queued.Kind != "txt" {
		t.Errorf("expected kind txt, got %q", queued.Kind)
	}

	deadline := time.Now().Add(2 * time.Second)
	var snap pipeline.JobSnapshot
	for {
		rec = doJSON(t, s, http.MethodGet, queued.PollURL, nil)
		decode(t, rec, &snap)
		if snap.Status.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/ingest/"+queued.JobID+"/chapters", nil)
	var book bookResponse
	decode(t, rec, &book)
	if len(book.Chapters) != 2 || book.Metadata.Title != "Story" {
		t.Errorf("unexpected book: %+v", book)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/ingest/missing/status", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestIngest_ValidationErrors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	body, ct := multipartBody(t, nil, "image.png", "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var out struct {
		Errors []string `json:"errors"`
	}
	decode(t, rec, &out)
	if len(out.Errors) != 3 {
		t.Errorf("expected 3 validation errors, got %v", out.Errors)
	}
}

func TestIngest_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 16
	s := newTestServer(t, cfg, nil)

	body, ct := multipartBody(t, map[string]string{"title": "Big"}, "big.txt", strings.Repeat("x", 64))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", rec.Code, rec.Body)
	}
}

func TestBackendEndpoints(t *testing.T) {
	var tagCalls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/tags":
			tagCalls++
			w.Write([]byte(`[{"id":"r","name":"Root"},{"id":"c10","name":"Part 10","parent_id":"r"},{"id":"c2","name":"Part 2","parent_id":"r"}]`))
		case "/api/v1/documents/d1/highlights":
			w.Write([]byte(`[{"id":"h1","selected_text":"a","color":"#ffff00","page_number":1,"is_favorite":true},` +
				`{"id":"h2","selected_text":"b","color":"#ffff00","page_number":2}]`))
		case "/api/v1/documents/gone/highlights":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Document not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer upstream.Close()

	client := backend.NewClient(upstream.URL, "", time.Second)
	s := newTestServer(t, testConfig(), client)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/tags/tree", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var tree struct {
		Tags []struct {
			Name     string `json:"name"`
			Children []struct {
				Name  string `json:"name"`
				Depth int    `json:"depth"`
			} `json:"children"`
		} `json:"tags"`
	}
	decode(t, rec, &tree)
	if len(tree.Tags) != 1 || len(tree.Tags[0].Children) != 2 {
		t.Fatalf("unexpected tree: %+v", tree)
	}
	if tree.Tags[0].Children[0].Name != "Part 2" || tree.Tags[0].Children[0].Depth != 1 {
		t.Errorf("expected Part 2 first at depth 1, got %+v", tree.Tags[0].Children[0])
	}
	doJSON(t, s, http.MethodGet, "/api/v1/tags/tree", nil)
	if tagCalls != 1 {
		t.Errorf("expected cached tag list, got %d upstream calls", tagCalls)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/documents/d1/highlights/statistics", nil)
	var stats struct {
		Statistics struct {
			Total     int            `json:"total_highlights"`
			ByColor   map[string]int `json:"by_color"`
			Favorites int            `json:"favorites"`
		} `json:"statistics"`
	}
	decode(t, rec, &stats)
	if stats.Statistics.Total != 2 || stats.Statistics.ByColor["#ffff00"] != 2 || stats.Statistics.Favorites != 1 {
		t.Errorf("unexpected statistics: %+v", stats.Statistics)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/documents/gone/highlights/statistics", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected upstream 404 passed through, got %d", rec.Code)
	}
	var e map[string]string
	decode(t, rec, &e)
	if e["error"] != "Document not found" {
		t.Errorf("expected upstream detail, got %q", e["error"])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/stats/backend", nil)
	var bs struct {
		Stats backend.StatsSnapshot `json:"stats"`
	}
	decode(t, rec, &bs)
	if bs.Stats.Count < 3 {
		t.Errorf("expected at least 3 recorded calls, got %d", bs.Stats.Count)
	}
}

func TestBackendEndpoints_Unconfigured(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	for _, path := range []string{"/api/v1/tags/tree", "/api/v1/stats/backend", "/api/v1/documents/d/highlights/statistics"} {
		if rec := doJSON(t, s, http.MethodGet, path, nil); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		`C:\docs\book.txt`: "book.txt",
		"":                 "unnamed",
		"a..b.txt":         "a_b.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
