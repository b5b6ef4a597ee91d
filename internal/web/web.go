// Package web renders the HTMX front end: the index page plus the HTML
// fragments returned when a request carries the Hx-Request header.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/*.html
var files embed.FS

var templates = template.Must(
	template.New("web").Funcs(template.FuncMap{
		"formatTime": func(unix int64) string {
			return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
		},
	}).ParseFS(files, "templates/*.html"),
)

// NewShortLink feeds the fragment shown after a successful creation.
type NewShortLink struct {
	LinkID string
	Domain string
}

// LinkRow is one row of the links table fragment.
type LinkRow struct {
	LinkID    string
	Title     string
	Clicks    int64
	Timestamp int64
}

// LinksTable feeds the paginated links table fragment.
type LinksTable struct {
	Links         []LinkRow
	Domain        string
	HasMore       bool
	NextID        string
	NextTimestamp string
}

// ErrorPopup feeds the inline error fragment.
type ErrorPopup struct {
	Message string
}

// IndexPage feeds the landing page.
type IndexPage struct {
	Domain string
}

// Render writes the named template with data.
func Render(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}
