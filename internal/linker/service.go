package linker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tinylink-dev/tinylink/internal/errx"
	"github.com/tinylink-dev/tinylink/internal/idgen"
	"github.com/tinylink-dev/tinylink/internal/metadata"
	"github.com/tinylink-dev/tinylink/internal/safebrowsing"
	"github.com/tinylink-dev/tinylink/internal/urlx"
)

const (
	DefaultIDLength      = idgen.DefaultLength
	DefaultPageSize      = 5
	MaxPageSize          = 100
	DefaultCreateRetries = 3
)

// Service defines the business operations of the shortener.
type Service interface {
	Shorten(ctx context.Context, rawURL string) (Link, error)
	Resolve(ctx context.Context, id string) (string, error)
	List(ctx context.Context, cursor *Cursor, pageSize int) (Page, error)
}

// service implements the Service interface.
type service struct {
	repo          Repository
	ids           idgen.Generator
	meta          metadata.Fetcher     // optional
	safety        safebrowsing.Checker // optional
	idLength      int
	createRetries int
	now           func() time.Time
	logger        *slog.Logger
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	IDGenerator   idgen.Generator
	Metadata      metadata.Fetcher     // nil disables enrichment
	SafetyChecker safebrowsing.Checker // nil disables threat lookups
	IDLength      int
	CreateRetries int // attempts when allocating a unique id (default: 3)
	Logger        *slog.Logger
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	ids := config.IDGenerator
	if ids == nil {
		ids = idgen.NewBase62()
	}

	idLength := config.IDLength
	if idLength <= 0 {
		idLength = DefaultIDLength
	}

	retries := config.CreateRetries
	if retries <= 0 {
		retries = DefaultCreateRetries
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		repo:          repo,
		ids:           ids,
		meta:          config.Metadata,
		safety:        config.SafetyChecker,
		idLength:      idLength,
		createRetries: retries,
		now:           time.Now,
		logger:        logger,
	}
}

// Shorten validates and canonicalizes rawURL, enriches it best-effort,
// and creates the record under a freshly generated id. An id collision
// is retried with a new id a bounded number of times.
func (s *service) Shorten(ctx context.Context, rawURL string) (Link, error) {
	const op = "linker.service.Shorten"

	canonical, err := urlx.Validate(rawURL)
	if err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	if s.safety != nil {
		safe, err := s.safety.Check(ctx, canonical)
		switch {
		case err != nil:
			// Advisory only. A lookup outage must not block creation.
			s.logger.WarnContext(ctx, "threat lookup failed, continuing",
				"url", canonical,
				"error", err,
			)
		case !safe:
			return Link{}, errx.E(op, errx.Invalid, errors.New("url is flagged as unsafe"))
		}
	}

	var details metadata.Details
	if s.meta != nil {
		details, err = s.meta.Fetch(ctx, canonical)
		if err != nil {
			// Enrichment is best-effort: the link is created without it.
			s.logger.DebugContext(ctx, "metadata fetch failed",
				"url", canonical,
				"error", err,
			)
			details = metadata.Details{}
		}
	}

	for range s.createRetries {
		id, err := s.ids.Generate(s.idLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.repo.Create(ctx, Link{
			ID:          id,
			OriginalURL: canonical,
			Clicks:      0,
			CreatedAt:   s.now().Unix(),
			Title:       details.Title,
			Description: details.Description,
			ContentType: details.ContentType,
			ImageURL:    details.Image,
		})
		if err == nil {
			return created, nil
		}

		// Retry on id collision, fail on anything else.
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return Link{}, errx.E(op, errx.Unavailable,
		errors.New("could not allocate a unique link id after retries"))
}

// Resolve returns the original URL for id, counting the visit. An
// unknown id surfaces as a NotFound-kind error for the boundary to map
// to its not-found outcome.
func (s *service) Resolve(ctx context.Context, id string) (string, error) {
	const op = "linker.service.Resolve"

	if id == "" {
		return "", errx.E(op, errx.Invalid, errors.New("link id cannot be empty"))
	}

	originalURL, err := s.repo.ResolveAndIncrement(ctx, id)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}
	return originalURL, nil
}

// List returns one page of links ordered newest first.
func (s *service) List(ctx context.Context, cursor *Cursor, pageSize int) (Page, error) {
	const op = "linker.service.List"

	page, err := s.repo.ListByRecency(ctx, cursor, pageSize)
	if err != nil {
		return Page{}, errx.E(op, errx.KindOf(err), err)
	}
	return page, nil
}
