package linker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tinylink-dev/tinylink/internal/errx"
	"github.com/tinylink-dev/tinylink/internal/httpx"
	"github.com/tinylink-dev/tinylink/internal/web"
)

// ShortenHTTPRequest represents the JSON request body for creating a link.
type ShortenHTTPRequest struct {
	URLToShorten string `json:"url_to_shorten"`
}

// LinkResponse represents one link record on the wire.
type LinkResponse struct {
	LinkID       string  `json:"link_id"`
	OriginalLink string  `json:"original_link"`
	Clicks       int64   `json:"clicks"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	ContentType  *string `json:"content_type,omitempty"`
	Image        *string `json:"image,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// ListResponse represents one page of links on the wire. The cursor
// fields are present together or not at all; has_more mirrors their
// presence and is the only signal that another page exists.
type ListResponse struct {
	ShortURLs              []LinkResponse `json:"short_urls"`
	LastEvaluatedID        *string        `json:"last_evaluated_id"`
	LastEvaluatedTimestamp *string        `json:"last_evaluated_timestamp"`
	HasMore                bool           `json:"has_more"`
}

// Handler provides HTTP handlers for the shortener service.
type Handler struct {
	service Service
	logger  *slog.Logger
	domain  string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	Domain  string // Display domain for rendered fragments (e.g. "tinylink.dev/")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		domain:  cfg.Domain,
	}
}

// Index serves the landing page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := web.Render(&buf, "index.html", web.IndexPage{Domain: h.domain}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render index", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"unable to render page", nil)
		return
	}
	httpx.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// CreateLink handles POST requests to create a new short link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	req, err := httpx.DecodeJSON[ShortenHTTPRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		h.writeCreateFailure(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if req.URLToShorten == "" {
		logger.WarnContext(ctx, "missing url in request")
		h.writeCreateFailure(w, r, http.StatusBadRequest, "invalid_request", "url_to_shorten is required")
		return
	}

	link, err := h.service.Shorten(ctx, req.URLToShorten)
	if err != nil {
		h.handleCreateError(ctx, w, r, err)
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", link.ID,
		"original_url", link.OriginalURL,
	)

	if httpx.IsHTMX(r) {
		var buf bytes.Buffer
		if err := web.Render(&buf, "new_short_link.html", web.NewShortLink{
			LinkID: link.ID,
			Domain: h.domain,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to render fragment", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
				"unable to render response", nil)
			return
		}
		httpx.WriteHTML(w, http.StatusOK, buf.Bytes())
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toLinkResponse(link))
}

// ResolveLink handles GET requests on a short id and redirects to the
// original URL, counting the visit.
func (h *Handler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	linkID := r.PathValue("linkId")
	if linkID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	originalURL, err := h.service.Resolve(ctx, linkID)
	if err != nil {
		switch errx.KindOf(err) {
		case errx.NotFound, errx.Invalid:
			logger.InfoContext(ctx, "link not found", "link_id", linkID)
			w.WriteHeader(http.StatusNotFound)
		default:
			logger.ErrorContext(ctx, "failed to resolve link",
				"link_id", linkID,
				"error", err.Error(),
				"operation", errx.OpOf(err),
			)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	logger.InfoContext(ctx, "link resolved",
		"link_id", linkID,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	httpx.Redirect(w, originalURL)
}

// ListLinks handles GET requests for the paginated link listing.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	cursor := cursorFromQuery(r)

	page, err := h.service.List(ctx, cursor, DefaultPageSize)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list links",
			"error", err.Error(),
			"operation", errx.OpOf(err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"unable to list links at this time", nil)
		return
	}

	if httpx.IsHTMX(r) {
		var buf bytes.Buffer
		if err := web.Render(&buf, "links_table.html", toLinksTable(page, h.domain)); err != nil {
			logger.ErrorContext(ctx, "failed to render fragment", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
				"unable to render response", nil)
			return
		}
		httpx.WriteHTML(w, http.StatusOK, buf.Bytes())
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toListResponse(page))
}

// handleCreateError maps Shorten errors onto transport responses.
func (h *Handler) handleCreateError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid shorten request", logAttrs...)
		h.writeCreateFailure(w, r, http.StatusBadRequest, "invalid_input", rootMessage(err))

	default:
		// Store failures surface as 500 here, matching the resolve and
		// list paths.
		h.logger.ErrorContext(ctx, "failed to shorten url", logAttrs...)
		h.writeCreateFailure(w, r, http.StatusInternalServerError, "internal_error",
			"unable to create a short link at this time")
	}
}

// writeCreateFailure responds with an error popup fragment for HTMX
// callers (which expect 200 with swappable HTML) and JSON otherwise.
func (h *Handler) writeCreateFailure(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if httpx.IsHTMX(r) {
		var buf bytes.Buffer
		if err := web.Render(&buf, "error_popup.html", web.ErrorPopup{Message: message}); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
				"unable to render response", nil)
			return
		}
		httpx.WriteHTML(w, http.StatusOK, buf.Bytes())
		return
	}
	httpx.WriteError(w, status, code, message, nil)
}

// cursorFromQuery reads the pagination cursor from the query string.
// Both fields are required for a cursor to exist: a request carrying
// only one of them, or an unparsable timestamp, starts from the most
// recent page instead of failing.
func cursorFromQuery(r *http.Request) *Cursor {
	q := r.URL.Query()

	id := q.Get("last_evaluated_id")
	ts := q.Get("last_evaluated_timestamp")
	if id == "" || ts == "" {
		return nil
	}

	createdAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil
	}

	return &Cursor{ID: id, CreatedAt: createdAt}
}

func toLinkResponse(link Link) LinkResponse {
	return LinkResponse{
		LinkID:       link.ID,
		OriginalLink: link.OriginalURL,
		Clicks:       link.Clicks,
		Title:        link.Title,
		Description:  link.Description,
		ContentType:  link.ContentType,
		Image:        link.ImageURL,
		Timestamp:    link.CreatedAt,
	}
}

func toListResponse(page Page) ListResponse {
	resp := ListResponse{
		ShortURLs: make([]LinkResponse, 0, len(page.Links)),
	}
	for _, link := range page.Links {
		resp.ShortURLs = append(resp.ShortURLs, toLinkResponse(link))
	}

	if page.Next != nil {
		id := page.Next.ID
		ts := strconv.FormatInt(page.Next.CreatedAt, 10)
		resp.LastEvaluatedID = &id
		resp.LastEvaluatedTimestamp = &ts
		resp.HasMore = true
	}

	return resp
}

func toLinksTable(page Page, domain string) web.LinksTable {
	table := web.LinksTable{
		Links:  make([]web.LinkRow, 0, len(page.Links)),
		Domain: domain,
	}
	for _, link := range page.Links {
		row := web.LinkRow{
			LinkID:    link.ID,
			Clicks:    link.Clicks,
			Timestamp: link.CreatedAt,
		}
		if link.Title != nil {
			row.Title = *link.Title
		}
		table.Links = append(table.Links, row)
	}

	if page.Next != nil {
		table.HasMore = true
		table.NextID = page.Next.ID
		table.NextTimestamp = strconv.FormatInt(page.Next.CreatedAt, 10)
	}

	return table
}

// rootMessage digs out the innermost message so user-facing validation
// errors don't leak operation traces.
func rootMessage(err error) string {
	var e *errx.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
