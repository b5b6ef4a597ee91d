package linker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tinylink-dev/tinylink/internal/errx"
)

// pgClient is the subset of *pgxpool.Pool the repository needs.
type pgClient interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema is the links table DDL. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS links (
    id           TEXT PRIMARY KEY,
    original_url TEXT NOT NULL,
    clicks       BIGINT NOT NULL DEFAULT 0,
    created_at   BIGINT NOT NULL,
    title        TEXT,
    description  TEXT,
    content_type TEXT,
    image_url    TEXT,

    CONSTRAINT links_clicks_non_negative CHECK (clicks >= 0)
);

CREATE INDEX IF NOT EXISTS links_recency_idx ON links (created_at DESC, id DESC);
`

// Migrate applies the links schema.
func Migrate(ctx context.Context, db pgClient) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply links schema: %w", err)
	}
	return nil
}

const (
	createLinkSQL = `
INSERT INTO links (id, original_url, clicks, created_at, title, description, content_type, image_url)
VALUES ($1, $2, 0, $3, $4, $5, $6, $7)`

	// A single server-side statement: the increment and the read observe
	// the same record, and concurrent visitors never lose updates.
	resolveAndIncrementSQL = `
UPDATE links SET clicks = clicks + 1 WHERE id = $1 RETURNING original_url`

	listHeadSQL = `
SELECT id, original_url, clicks, created_at, title, description, content_type, image_url
FROM links
ORDER BY created_at DESC, id DESC
LIMIT $1`

	listAfterCursorSQL = `
SELECT id, original_url, clicks, created_at, title, description, content_type, image_url
FROM links
WHERE (created_at, id) < ($1, $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`
)

type repo struct {
	db pgClient
}

// NewRepository creates a Repository backed by Postgres.
func NewRepository(db pgClient) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, link Link) (Link, error) {
	const op = "linker.repo.Create"

	_, err := r.db.Exec(ctx, createLinkSQL,
		link.ID,
		link.OriginalURL,
		link.CreatedAt,
		link.Title,
		link.Description,
		link.ContentType,
		link.ImageURL,
	)
	if err != nil {
		if isLinkIDViolation(err) {
			return Link{}, errx.E(op, errx.Conflict, err)
		}
		return Link{}, errx.E(op, errx.Unavailable, err)
	}

	return link, nil
}

func (r *repo) ResolveAndIncrement(ctx context.Context, id string) (string, error) {
	const op = "linker.repo.ResolveAndIncrement"

	var originalURL string
	err := r.db.QueryRow(ctx, resolveAndIncrementSQL, id).Scan(&originalURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errx.E(op, errx.NotFound, err)
		}
		return "", errx.E(op, errx.Unavailable, err)
	}

	return originalURL, nil
}

func (r *repo) ListByRecency(ctx context.Context, cursor *Cursor, pageSize int) (Page, error) {
	const op = "linker.repo.ListByRecency"

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	// Fetch one extra row: its presence is how we know more data exists
	// beyond this page.
	fetch := pageSize + 1

	var (
		rows pgx.Rows
		err  error
	)
	if cursor != nil {
		rows, err = r.db.Query(ctx, listAfterCursorSQL, cursor.CreatedAt, cursor.ID, fetch)
	} else {
		rows, err = r.db.Query(ctx, listHeadSQL, fetch)
	}
	if err != nil {
		return Page{}, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	var (
		links   []Link
		lastKey *Cursor
		scanned int
	)
	for rows.Next() {
		scanned++

		var row linkRow
		if err := rows.Scan(
			&row.id, &row.originalURL, &row.clicks, &row.createdAt,
			&row.title, &row.description, &row.contentType, &row.imageURL,
		); err != nil {
			// Malformed stored data is skipped, not fatal: listing
			// favors availability over completeness.
			continue
		}

		if row.id.Valid && row.createdAt.Valid {
			lastKey = &Cursor{ID: row.id.String, CreatedAt: row.createdAt.Int64}
		}

		link, err := toDomainLink(row)
		if err != nil {
			continue
		}
		if len(links) < pageSize {
			links = append(links, link)
		}
	}
	if err := rows.Err(); err != nil {
		return Page{}, errx.E(op, errx.Unavailable, err)
	}

	var next *Cursor
	if scanned > pageSize {
		if n := len(links); n > 0 {
			next = &Cursor{ID: links[n-1].ID, CreatedAt: links[n-1].CreatedAt}
		} else {
			// Every row on this page was skipped; advance past the last
			// scanned key so the listing cannot stall.
			next = lastKey
		}
	}

	return Page{Links: links, Next: next}, nil
}

// linkRow holds one scanned row with every column nullable, so that a
// record with broken data can be skipped instead of failing the page.
type linkRow struct {
	id          pgtype.Text
	originalURL pgtype.Text
	clicks      pgtype.Int8
	createdAt   pgtype.Int8
	title       pgtype.Text
	description pgtype.Text
	contentType pgtype.Text
	imageURL    pgtype.Text
}

func toDomainLink(row linkRow) (Link, error) {
	if !row.id.Valid {
		return Link{}, errors.New("id unexpectedly NULL")
	}
	if !row.originalURL.Valid {
		return Link{}, errors.New("original_url unexpectedly NULL")
	}
	if !row.clicks.Valid {
		return Link{}, errors.New("clicks unexpectedly NULL")
	}
	if !row.createdAt.Valid {
		return Link{}, errors.New("created_at unexpectedly NULL")
	}

	return Link{
		ID:          row.id.String,
		OriginalURL: row.originalURL.String,
		Clicks:      row.clicks.Int64,
		CreatedAt:   row.createdAt.Int64,
		Title:       textPtr(row.title),
		Description: textPtr(row.description),
		ContentType: textPtr(row.contentType),
		ImageURL:    textPtr(row.imageURL),
	}, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
