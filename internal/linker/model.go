package linker

// Link is the persisted record mapping a short identifier to its target
// URL and enrichment metadata. Only Clicks changes after creation, and
// only through the store's increment operation.
type Link struct {
	ID          string
	OriginalURL string
	Clicks      int64
	CreatedAt   int64 // unix seconds, the sort dimension for listing

	// Enrichment metadata, set once at creation when the scrape
	// succeeded. Each field is independently absent-capable.
	Title       *string
	Description *string
	ContentType *string
	ImageURL    *string
}

// Cursor marks a listing position: the (id, created_at) pair of the
// last record of a previous page. Both fields travel together; a cursor
// carrying only one of them is not a cursor.
type Cursor struct {
	ID        string
	CreatedAt int64
}

// Page is one page of a recency-ordered listing. Next is nil when the
// listing reached the end of the data set; its presence is the only
// has-more signal callers may rely on.
type Page struct {
	Links []Link
	Next  *Cursor
}
