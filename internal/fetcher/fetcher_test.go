package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tagmark/tagmark/internal/model"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>  Go Blog  </title>
	<meta name="description" content="A blog about Go">
	<meta property="og:title" content="The Go Blog">
	<meta property="og:description" content="Official Go articles">
	<meta property="og:type" content="article">
	<style>body { color: red; }</style>
</head>
<body>
	<script>console.log("ignored");</script>
	<h1>Welcome</h1>
	<p>Concurrency   is not parallelism.</p>
</body>
</html>`

func TestParseMetadata(t *testing.T) {
	meta := model.Metadata{URL: "https://example.com"}
	if err := parseMetadata(strings.NewReader(samplePage), &meta); err != nil {
		t.Fatalf("parseMetadata failed: %v", err)
	}

	if meta.Title != "Go Blog" {
		t.Errorf("title = %q, want %q", meta.Title, "Go Blog")
	}
	if meta.Description != "A blog about Go" {
		t.Errorf("description = %q", meta.Description)
	}
	if meta.OGTitle != "The Go Blog" {
		t.Errorf("og_title = %q", meta.OGTitle)
	}
	if meta.OGType != "article" {
		t.Errorf("og_type = %q", meta.OGType)
	}
	if strings.Contains(meta.ExtractedText, "console.log") {
		t.Error("extracted text should not contain script content")
	}
	if strings.Contains(meta.ExtractedText, "color: red") {
		t.Error("extracted text should not contain style content")
	}
	if !strings.Contains(meta.ExtractedText, "Concurrency is not parallelism.") {
		t.Errorf("extracted text missing body content: %q", meta.ExtractedText)
	}
}

func TestParseMetadata_TruncatesBodyText(t *testing.T) {
	page := "<html><body>" + strings.Repeat("word ", 300) + "</body></html>"

	meta := model.Metadata{URL: "https://example.com"}
	if err := parseMetadata(strings.NewReader(page), &meta); err != nil {
		t.Fatalf("parseMetadata failed: %v", err)
	}

	if len([]rune(meta.ExtractedText)) > maxExtractedText {
		t.Errorf("extracted text length = %d, want <= %d",
			len([]rune(meta.ExtractedText)), maxExtractedText)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	meta := New().Fetch(context.Background(), srv.URL)

	if meta.URL != srv.URL {
		t.Errorf("url = %q, want %q", meta.URL, srv.URL)
	}
	if meta.Title != "Go Blog" {
		t.Errorf("title = %q, want %q", meta.Title, "Go Blog")
	}
}

func TestFetch_NonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": "not html"}`))
	}))
	defer srv.Close()

	meta := New().Fetch(context.Background(), srv.URL)

	if meta.Title != "" {
		t.Errorf("expected empty title for non-HTML response, got %q", meta.Title)
	}
	if meta.URL != srv.URL {
		t.Errorf("url should survive a non-HTML response")
	}
}

func TestFetch_NetworkFailure(t *testing.T) {
	// Closed server: the fetch degrades to a URL-only result, never an error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	meta := New().Fetch(context.Background(), srv.URL)

	if meta.URL != srv.URL {
		t.Errorf("url = %q, want %q", meta.URL, srv.URL)
	}
	if meta.Title != "" || meta.ExtractedText != "" {
		t.Error("expected empty metadata on network failure")
	}
}
