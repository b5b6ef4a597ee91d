package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts title, description and og image", func(t *testing.T) {
		srv := htmlServer(t, `<html><head>
			<title>  Example Page  </title>
			<meta name="description" content="A page about examples">
			<meta property="og:image" content="https://cdn.example.com/og.png">
		</head><body></body></html>`)

		details, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL)
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if details.Title == nil || *details.Title != "Example Page" {
			t.Errorf("Title = %v, want Example Page", details.Title)
		}
		if details.Description == nil || *details.Description != "A page about examples" {
			t.Errorf("Description = %v, want A page about examples", details.Description)
		}
		if details.Image == nil || *details.Image != "https://cdn.example.com/og.png" {
			t.Errorf("Image = %v, want https://cdn.example.com/og.png", details.Image)
		}
		if details.ContentType == nil || !strings.HasPrefix(*details.ContentType, "text/html") {
			t.Errorf("ContentType = %v, want text/html prefix", details.ContentType)
		}
	})

	t.Run("falls back to first body image resolved against the page", func(t *testing.T) {
		srv := htmlServer(t, `<html><head><title>Pics</title></head>
			<body><img src="/static/hero.jpg"><img src="/static/second.jpg"></body></html>`)

		details, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL)
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		want := srv.URL + "/static/hero.jpg"
		if details.Image == nil || *details.Image != want {
			t.Errorf("Image = %v, want %s", details.Image, want)
		}
	})

	t.Run("truncates oversized fields", func(t *testing.T) {
		longTitle := strings.Repeat("t", 300)
		srv := htmlServer(t, "<html><head><title>"+longTitle+"</title></head><body></body></html>")

		details, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL)
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if details.Title == nil {
			t.Fatal("Title is nil")
		}
		if got := len([]rune(*details.Title)); got != maxTitleLen {
			t.Errorf("len(Title) = %d, want %d", got, maxTitleLen)
		}
	})

	t.Run("keeps only content type for non-html responses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		}))
		t.Cleanup(srv.Close)

		details, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL)
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if details.ContentType == nil || *details.ContentType != "application/pdf" {
			t.Errorf("ContentType = %v, want application/pdf", details.ContentType)
		}
		if details.Title != nil || details.Description != nil || details.Image != nil {
			t.Errorf("non-html response should carry no scraped fields, got %+v", details)
		}
	})

	t.Run("missing elements stay nil", func(t *testing.T) {
		srv := htmlServer(t, `<html><head></head><body><p>hello</p></body></html>`)

		details, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL)
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if details.Title != nil {
			t.Errorf("Title = %v, want nil", details.Title)
		}
		if details.Description != nil {
			t.Errorf("Description = %v, want nil", details.Description)
		}
		if details.Image != nil {
			t.Errorf("Image = %v, want nil", details.Image)
		}
	})

	t.Run("returns error when the target is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		if _, err := NewHTTPFetcher(nil).Fetch(ctx, srv.URL); err == nil {
			t.Error("Fetch() should fail for an unreachable target")
		}
	})
}
