package pubfront

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Defaults for the not-found set of a PageStore.
const (
	DefaultMaxMissing = 256
	DefaultMissingTTL = time.Minute
)

// Page is a generated HTML response.
type Page struct {
	Status    int
	Body      []byte
	Generated time.Time
}

// GenerateFunc renders the page for route.
type GenerateFunc func(ctx context.Context, route string) (Page, error)

// PageStore holds pages generated ahead of time or on first request.
// Pages live until restart unless a revalidate interval is set, in which
// case older pages are regenerated in the background on their next read.
//
// Not-found pages are kept apart from real pages, in a set capped at
// maxMissing entries that each expire after missingTTL.
type PageStore struct {
	mu         sync.RWMutex
	pages      map[string]Page
	missing    map[string]Page
	failed     map[string]error
	epoch      uint64
	revalidate time.Duration
	maxMissing int
	missingTTL time.Duration
	generate   GenerateFunc
	group      singleflight.Group
	ctx        context.Context
}

// NewPageStore creates a PageStore. Background generation runs under ctx.
func NewPageStore(ctx context.Context, gen GenerateFunc, revalidate time.Duration) *PageStore {
	return &PageStore{
		pages:      make(map[string]Page),
		missing:    make(map[string]Page),
		failed:     make(map[string]error),
		revalidate: revalidate,
		maxMissing: DefaultMaxMissing,
		missingTTL: DefaultMissingTTL,
		generate:   gen,
		ctx:        ctx,
	}
}

// Get returns the stored page for route. stale is true when the page is
// older than the revalidate interval. Expired not-found pages are not
// returned.
func (s *PageStore) Get(route string) (p Page, stale, ok bool) {
	s.mu.RLock()
	p, ok = s.pages[route]
	if !ok {
		p, ok = s.missing[route]
		ok = ok && time.Since(p.Generated) < s.missingTTL
	}
	s.mu.RUnlock()
	if ok && p.Status == http.StatusOK && s.revalidate > 0 && time.Since(p.Generated) > s.revalidate {
		stale = true
	}
	return p, stale, ok
}

// Generate renders route now, sharing the work with concurrent callers for
// the same route, and stores the result.
func (s *PageStore) Generate(ctx context.Context, route string) (Page, error) {
	key, epoch := s.key(route)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.run(ctx, route, epoch)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// Start generates route in the background unless that is already under way.
func (s *PageStore) Start(route string) {
	key, epoch := s.key(route)
	s.group.DoChan(key, func() (any, error) {
		return s.run(s.ctx, route, epoch)
	})
}

// key scopes a generation to the current epoch, so work started before an
// Invalidate is never joined by work started after it.
func (s *PageStore) key(route string) (string, uint64) {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()
	return strconv.FormatUint(epoch, 10) + ":" + route, epoch
}

func (s *PageStore) run(ctx context.Context, route string, epoch uint64) (Page, error) {
	p, err := s.generate(ctx, route)
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		// Invalidated while generating: the result predates the new content.
		return p, err
	}
	if err != nil {
		s.fail(route, err)
		return Page{}, err
	}
	if p.Generated.IsZero() {
		p.Generated = time.Now()
	}
	delete(s.failed, route)
	if p.Status == http.StatusNotFound {
		delete(s.pages, route)
		s.addMissing(route, p)
		return p, nil
	}
	delete(s.missing, route)
	s.pages[route] = p
	return p, nil
}

// addMissing stores a not-found page, evicting expired entries and then the
// oldest one when the set is full. Callers hold s.mu.
func (s *PageStore) addMissing(route string, p Page) {
	if _, ok := s.missing[route]; !ok && len(s.missing) >= s.maxMissing {
		oldest, first := "", true
		for r, m := range s.missing {
			if time.Since(m.Generated) >= s.missingTTL {
				delete(s.missing, r)
				continue
			}
			if first || m.Generated.Before(s.missing[oldest].Generated) {
				oldest, first = r, false
			}
		}
		if len(s.missing) >= s.maxMissing {
			delete(s.missing, oldest)
		}
	}
	s.missing[route] = p
}

// fail records the error of route, dropping an arbitrary entry when as many
// failures as missing pages are held. Callers hold s.mu.
func (s *PageStore) fail(route string, err error) {
	if _, ok := s.failed[route]; !ok && len(s.failed) >= s.maxMissing {
		for r := range s.failed {
			delete(s.failed, r)
			break
		}
	}
	s.failed[route] = err
}

// TakeErr returns and clears the error of the last failed generation of route.
func (s *PageStore) TakeErr(route string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failed[route]
	delete(s.failed, route)
	return err
}

// Prerender generates routes one after another. It stops at the first error.
func (s *PageStore) Prerender(ctx context.Context, routes []string) error {
	for _, r := range routes {
		if _, err := s.Generate(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Routes lists the stored routes in order. Not-found pages are left out.
func (s *PageStore) Routes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	routes := make([]string, 0, len(s.pages))
	for r := range s.pages {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	return routes
}

// Missing is the number of not-found pages held.
func (s *PageStore) Missing() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.missing)
}

// Invalidate drops every stored page. Generations already running finish
// but their results are discarded.
func (s *PageStore) Invalidate() {
	s.mu.Lock()
	s.epoch++
	s.pages = make(map[string]Page)
	s.missing = make(map[string]Page)
	s.failed = make(map[string]error)
	s.mu.Unlock()
}
