// Package catalog fetches and accumulates restaurant results for one
// visitor's coordinates.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"larica/metrics"
	"larica/models"
	"larica/pubsub"

	"golang.org/x/sync/errgroup"
)

// ErrStaleResponse is returned when a response arrived for coordinates that
// are no longer current; the response was discarded.
var ErrStaleResponse = errors.New("response for stale coordinates discarded")

// maxParallelPages bounds concurrent page fetches in LoadAll
const maxParallelPages = 4

// Fetcher is the part of Client the catalog depends on
type Fetcher interface {
	Search(ctx context.Context, coords models.Coordinates, page int) (*Page, error)
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Snapshot is a consistent copy of the catalog state
type Snapshot struct {
	Coordinates *models.Coordinates `json:"coordinates"`
	Restaurants []models.Restaurant `json:"restaurants"`
	Cursor      models.PageCursor   `json:"cursor"`
	HasMore     bool                `json:"has_more"`
	Status      Status              `json:"status"`
	Error       string              `json:"error,omitempty"`
	Generation  uint64              `json:"generation"`
}

// Catalog holds the restaurants fetched for the current coordinates.
// Generation changes whenever the catalog identity changes (new coordinates
// or an explicit reload); responses are applied only to the generation they
// were requested for.
type Catalog struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	resets  pubsub.Hub[uint64]

	mu         sync.Mutex
	coords     *models.Coordinates
	items      []models.Restaurant
	seen       map[string]struct{}
	cursor     models.PageCursor
	status     Status
	errMsg     string
	generation uint64
	busy       bool
}

func New(fetcher Fetcher, logger *slog.Logger, m *metrics.Metrics) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		fetcher: fetcher,
		logger:  logger.With("component", "catalog"),
		metrics: m,
		seen:    make(map[string]struct{}),
		status:  StatusIdle,
	}
}

// OnReset registers fn to be called with the new generation whenever the
// catalog identity changes.
func (c *Catalog) OnReset(fn func(generation uint64)) func() {
	return c.resets.Subscribe(fn)
}

// SetCoordinates switches the catalog to coords and fetches the first page.
// Coordinates no fresher than the current ones are ignored, so a late
// publication of an older fix never replaces a newer one. Sentinel
// coordinates clear the catalog without fetching.
func (c *Catalog) SetCoordinates(ctx context.Context, coords models.Coordinates) error {
	c.mu.Lock()
	if c.coords != nil && coords.Freshness <= c.coords.Freshness {
		c.mu.Unlock()
		return nil
	}
	c.coords = &coords
	gen := c.resetLocked()
	if coords.IsSentinel() {
		c.status = StatusIdle
		c.busy = false
		c.mu.Unlock()
		c.resets.Publish(gen)
		c.logger.Info("Coordinates unresolved, skipping fetch")
		return nil
	}
	c.status = StatusLoading
	c.busy = true
	c.mu.Unlock()

	c.resets.Publish(gen)
	return c.loadPages(ctx, gen, coords, 1)
}

// Reload drops the current results and refetches from the first page.
// It is the user-triggered retry after a failure.
func (c *Catalog) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.coords == nil || c.coords.IsSentinel() {
		c.mu.Unlock()
		return nil
	}
	coords := *c.coords
	gen := c.resetLocked()
	c.status = StatusLoading
	c.busy = true
	c.mu.Unlock()

	c.resets.Publish(gen)
	return c.loadPages(ctx, gen, coords, 1)
}

// LoadMore fetches the next page if the cursor has one
func (c *Catalog) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.coords == nil || c.coords.IsSentinel() || c.busy {
		c.mu.Unlock()
		return nil
	}
	next := c.cursor.Page + 1
	if c.cursor.Page > 0 && !c.cursor.HasMore() {
		c.mu.Unlock()
		return nil
	}
	coords, gen := *c.coords, c.generation
	c.status = StatusLoading
	c.busy = true
	c.mu.Unlock()

	return c.loadPages(ctx, gen, coords, next)
}

// LoadAll fetches every remaining page, as the map view shows the full
// result set. Pages after the first are fetched concurrently and applied in
// page order.
func (c *Catalog) LoadAll(ctx context.Context) error {
	c.mu.Lock()
	if c.coords == nil || c.coords.IsSentinel() || c.busy {
		c.mu.Unlock()
		return nil
	}
	coords, gen := *c.coords, c.generation
	cursor := c.cursor
	if cursor.Page > 0 && !cursor.HasMore() {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusLoading
	c.busy = true
	c.mu.Unlock()

	if cursor.Page == 0 {
		first, err := c.fetch(ctx, coords, 1)
		if err != nil {
			return c.fail(gen, err)
		}
		if err := c.apply(gen, false, first); err != nil {
			return err
		}
		cursor = first.Cursor
	}

	pages := make([]*Page, 0, max(cursor.TotalPages-cursor.Page, 0))
	for p := cursor.Page + 1; p <= cursor.TotalPages; p++ {
		pages = append(pages, nil)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)
	for i := range pages {
		pageNum := cursor.Page + 1 + i
		g.Go(func() error {
			p, err := c.fetch(gctx, coords, pageNum)
			if err != nil {
				return err
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return c.fail(gen, err)
	}
	return c.apply(gen, true, pages...)
}

// Find returns the restaurant with id from the current results
func (c *Catalog) Find(id string) (models.Restaurant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.items {
		if r.ID == id {
			return r, true
		}
	}
	return models.Restaurant{}, false
}

// Snapshot returns a copy of the current state
func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Restaurants: append([]models.Restaurant(nil), c.items...),
		Cursor:      c.cursor,
		HasMore:     c.cursor.HasMore(),
		Status:      c.status,
		Error:       c.errMsg,
		Generation:  c.generation,
	}
	if c.coords != nil {
		coords := *c.coords
		s.Coordinates = &coords
	}
	return s
}

// resetLocked must be called with mu held; it returns the new generation
func (c *Catalog) resetLocked() uint64 {
	c.generation++
	c.items = nil
	c.seen = make(map[string]struct{})
	c.cursor = models.PageCursor{}
	c.errMsg = ""
	return c.generation
}

func (c *Catalog) loadPages(ctx context.Context, gen uint64, coords models.Coordinates, page int) error {
	p, err := c.fetch(ctx, coords, page)
	if err != nil {
		return c.fail(gen, err)
	}
	return c.apply(gen, true, p)
}

func (c *Catalog) fetch(ctx context.Context, coords models.Coordinates, page int) (*Page, error) {
	start := time.Now()
	p, err := c.fetcher.Search(ctx, coords, page)
	outcome := "ok"
	var statusErr *StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		outcome = "http_error"
	case errors.Is(err, ErrMalformedResponse):
		outcome = "malformed"
	default:
		outcome = "network_error"
	}
	c.metrics.CatalogFetch(outcome, time.Since(start))
	return p, err
}

// apply appends pages to the catalog if gen is still current. Entries whose
// ID was already seen are skipped.
func (c *Catalog) apply(gen uint64, done bool, pages ...*Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.metrics.CatalogStale()
		c.logger.Debug("Discarding stale response", "generation", gen, "current", c.generation)
		return ErrStaleResponse
	}

	added := 0
	for _, p := range pages {
		for _, r := range p.Results {
			if _, dup := c.seen[r.ID]; dup {
				continue
			}
			c.seen[r.ID] = struct{}{}
			c.items = append(c.items, r)
			added++
		}
		c.cursor = p.Cursor
	}
	if done {
		c.status = StatusReady
		c.busy = false
	}
	c.errMsg = ""
	c.logger.Debug("Catalog updated",
		"generation", gen,
		"page", c.cursor.Page,
		"total_pages", c.cursor.TotalPages,
		"added", added,
		"total", len(c.items),
	)
	return nil
}

func (c *Catalog) fail(gen uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.metrics.CatalogStale()
		return ErrStaleResponse
	}
	c.status = StatusFailed
	c.busy = false
	c.errMsg = "Failed to load restaurants: " + err.Error()
	c.logger.Warn("Catalog fetch failed", "generation", gen, "error", err)
	return err
}
