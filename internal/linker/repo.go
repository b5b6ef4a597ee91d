package linker

import "context"

// Repository is the persistence boundary for Link records. It owns the
// three access patterns against the links table: conditional create,
// atomic resolve-and-increment, and keyset listing by recency.
type Repository interface {
	// Create inserts link on the condition that no record with the same
	// ID exists. A collision surfaces as a Conflict-kind error and never
	// overwrites the existing record.
	Create(ctx context.Context, link Link) (Link, error)

	// ResolveAndIncrement atomically adds one to the record's click
	// count and returns its original URL in the same server-side
	// operation. An unknown id surfaces as a NotFound-kind error and
	// does not create a record.
	ResolveAndIncrement(ctx context.Context, id string) (string, error)

	// ListByRecency returns up to pageSize records ordered by
	// created_at descending (ties broken by id descending), starting
	// strictly after cursor when one is given. Records that fail to
	// load cleanly are skipped rather than failing the page.
	ListByRecency(ctx context.Context, cursor *Cursor, pageSize int) (Page, error)
}
