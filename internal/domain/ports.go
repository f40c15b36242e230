package domain

import "context"

// FingerprintStore is the driven port mapping content fingerprints to external
// job handles. The mapping is append-only; entries are never deleted.
type FingerprintStore interface {
	// Lookup returns the handle recorded for a fingerprint. A missing row is
	// reported through found, not an error.
	Lookup(ctx context.Context, fingerprint string) (handle string, found bool, err error)
	Record(ctx context.Context, fingerprint, handle string) error
}

// ContentStore is the driven port for durable raw resume bytes.
type ContentStore interface {
	// Put persists content under key. Write-once: callers only Put a key they
	// have never seen before.
	Put(ctx context.Context, key string, content []byte) error
	// URL returns the public reference the external parser can fetch key from.
	URL(key string) string
}

// ParserClient is the driven port for the external resume parsing service.
type ParserClient interface {
	// Submit registers contentURL for parsing and returns the job handle.
	Submit(ctx context.Context, contentURL string) (string, error)
	// Await polls until the job is ready or the await budget expires, then
	// returns the raw result payload. An expired budget is not an error; the
	// payload may report not-ready.
	Await(ctx context.Context, handle string) ([]byte, error)
}

// SectionHeaderStore is the driven port tracking how often resume section
// headers occur per job title.
type SectionHeaderStore interface {
	Increment(ctx context.Context, jobTitle string, headers []string) error
	Top(ctx context.Context, jobTitle string, limit int) ([]HeaderCount, error)
}

// HeaderCount is a section header's observed frequency for one job title.
type HeaderCount struct {
	Header    string
	Frequency int64
}

// Listing is one scraped job posting.
type Listing struct {
	Title string
	URL   string
}

// ListingSource is the driven port for job listing scrapes.
type ListingSource interface {
	Scrape(ctx context.Context, position, location string) ([]Listing, error)
}
