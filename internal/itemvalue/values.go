// Package itemvalue provides read-through lookups of item economic values
// (high alchemy value and Giant's Foundry bar cost) backed by a persistent
// cache and a lazily constructed remote fetcher.
package itemvalue

import "context"

// Values holds the optional numeric attributes of one item. A nil field means
// the value is unknown or does not apply.
type Values struct {
	HighAlch *int `json:"high_alch"`
	BarsUsed *int `json:"bars_used"`
}

// Int returns a pointer to v, for building Values literals.
func Int(v int) *int {
	return &v
}

// Provider resolves item values. Lookup failures are reported only as absent
// values.
type Provider interface {
	Get(ctx context.Context, name string) Values
	GetBatch(ctx context.Context, names []string) map[string]Values
}

// Cache persists resolved values across runs.
type Cache interface {
	// Load returns every cached entry.
	Load(ctx context.Context) (map[string]Values, error)
	// Put stores v under name, replacing any previous entry.
	Put(ctx context.Context, name string, v Values) error
}

// Fetcher resolves values from a remote source on a cache miss. A nil error
// with empty Values means the source has no data for the item; that answer is
// cached. An error means the source could not be consulted and is not cached.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (Values, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, name string) (Values, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, name string) (Values, error) {
	return f(ctx, name)
}
