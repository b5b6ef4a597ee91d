// Package metadata fetches enrichment details (title, description,
// image, content type) for a target URL. Fetching is strictly
// best-effort: callers treat any failure as "no metadata".
package metadata

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds how long a scrape may hold up link creation.
	DefaultTimeout = 2 * time.Second

	maxContentTypeLen = 32
	maxTitleLen       = 256
	maxDescriptionLen = 256
	maxImageLen       = 512
)

// Details holds whatever could be extracted from the target page.
// Every field is independently absent-capable.
type Details struct {
	ContentType *string `json:"content_type,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// Fetcher extracts Details for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Details, error)
}

// HTTPFetcher fetches the target page over HTTP and scrapes HTML
// responses for title, meta description and a representative image.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher using client, or a default
// client with DefaultTimeout when client is nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPFetcher{client: client}
}

// Fetch GETs pageURL and extracts Details. Non-HTML responses yield
// only the content type. The error return exists for logging; callers
// are expected to fall back to zero-value Details on failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (Details, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Details{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Details{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var details Details
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		details.ContentType = truncated(ct, maxContentTypeLen)
	}

	if details.ContentType == nil || !strings.HasPrefix(*details.ContentType, "text/html") {
		return details, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		// The content type was still worth keeping.
		return details, nil
	}

	if title := doc.Find("head > title").First(); title.Length() > 0 {
		details.Title = truncated(strings.TrimSpace(title.Text()), maxTitleLen)
	}
	if desc, ok := doc.Find(`head > meta[name="description"]`).First().Attr("content"); ok {
		details.Description = truncated(desc, maxDescriptionLen)
	}
	details.Image = findImage(doc, pageURL)

	return details, nil
}

// findImage prefers the OpenGraph image and falls back to the first
// image in the body, resolved against the page URL since src attributes
// are often relative.
func findImage(doc *goquery.Document, pageURL string) *string {
	if og, ok := doc.Find(`head > meta[property="og:image"]`).First().Attr("content"); ok {
		return truncated(og, maxImageLen)
	}

	src, ok := doc.Find("body img").First().Attr("src")
	if !ok {
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	resolved, err := base.Parse(src)
	if err != nil {
		return nil
	}
	return truncated(resolved.String(), maxImageLen)
}

// truncated returns a pointer to s limited to max runes, or nil for the
// empty string.
func truncated(s string, max int) *string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	if len(runes) > max {
		s = string(runes[:max])
	}
	return &s
}
