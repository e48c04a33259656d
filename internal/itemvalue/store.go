package itemvalue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency bounds concurrent remote fetches in GetBatch.
const DefaultConcurrency = 4

// Store is a read-through Provider. Cached entries are served from memory;
// misses go to a Fetcher that is only constructed on the first miss, and
// successful answers are written back to the Cache.
//
// Store is safe for concurrent use.
type Store struct {
	cache       Cache
	newFetcher  func() (Fetcher, error)
	logger      *zap.Logger
	concurrency int

	mu   sync.RWMutex
	data map[string]Values

	fetcherOnce sync.Once
	fetcher     Fetcher
	fetcherErr  error

	group    singleflight.Group
	warnOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency bounds concurrent fetches issued by GetBatch.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewStore loads cache and returns a Store over it. newFetcher may be nil, in
// which case misses resolve to empty, uncached Values.
//
// Precondition: cache and logger must be non-nil.
// Postcondition: Returns a Store holding every cached entry, or the cache
// load error.
func NewStore(ctx context.Context, cache Cache, newFetcher func() (Fetcher, error), logger *zap.Logger, opts ...Option) (*Store, error) {
	data, err := cache.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading value cache: %w", err)
	}
	if data == nil {
		data = make(map[string]Values)
	}
	s := &Store{
		cache:       cache,
		newFetcher:  newFetcher,
		logger:      logger,
		concurrency: DefaultConcurrency,
		data:        data,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Get returns the values for name, fetching and caching them on a miss.
// Concurrent misses for the same name share one fetch. The shared fetch
// ignores the starting caller's cancellation and is bounded by the fetcher's
// own timeout.
func (s *Store) Get(ctx context.Context, name string) Values {
	if v, ok := s.lookup(name); ok {
		return v
	}
	res, _, _ := s.group.Do(name, func() (any, error) {
		if v, ok := s.lookup(name); ok {
			return v, nil
		}
		return s.fetch(context.WithoutCancel(ctx), name), nil
	})
	return res.(Values)
}

// GetBatch resolves every name, fetching misses concurrently.
//
// Postcondition: the result has one entry per distinct name.
func (s *Store) GetBatch(ctx context.Context, names []string) map[string]Values {
	out := make(map[string]Values, len(names))
	var missing []string
	for _, name := range names {
		if _, done := out[name]; done {
			continue
		}
		if v, ok := s.lookup(name); ok {
			out[name] = v
			continue
		}
		out[name] = Values{}
		missing = append(missing, name)
	}

	results := make([]Values, len(missing))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range missing {
		i, name := i, name
		g.Go(func() error {
			results[i] = s.Get(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range missing {
		out[name] = results[i]
	}
	return out
}

func (s *Store) lookup(name string) (Values, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[name]
	return v, ok
}

func (s *Store) fetch(ctx context.Context, name string) Values {
	f, err := s.remote()
	if err != nil {
		s.degraded(name, err)
		return Values{}
	}
	if f == nil {
		return Values{}
	}

	v, err := f.Fetch(ctx, name)
	if err != nil {
		s.degraded(name, err)
		return Values{}
	}

	s.mu.Lock()
	s.data[name] = v
	s.mu.Unlock()

	if err := s.cache.Put(ctx, name, v); err != nil {
		s.degraded(name, fmt.Errorf("persisting value cache: %w", err))
	}
	return v
}

// remote constructs the fetcher on first use.
func (s *Store) remote() (Fetcher, error) {
	s.fetcherOnce.Do(func() {
		if s.newFetcher == nil {
			return
		}
		s.fetcher, s.fetcherErr = s.newFetcher()
	})
	return s.fetcher, s.fetcherErr
}

// degraded reports a lookup failure: a warning the first time, debug after.
func (s *Store) degraded(name string, err error) {
	warned := false
	s.warnOnce.Do(func() {
		warned = true
		s.logger.Warn("item value lookup failed; affected items are left out of value summaries",
			zap.String("item", name),
			zap.Error(err),
		)
	})
	if !warned {
		s.logger.Debug("item value lookup failed",
			zap.String("item", name),
			zap.Error(err),
		)
	}
}
