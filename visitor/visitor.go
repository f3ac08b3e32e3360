// Package visitor owns the server-side state of each browser client.
package visitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"larica/auth"
	"larica/catalog"
	"larica/location"
	"larica/metrics"
	"larica/models"
	"larica/search"
)

// Deps are the shared services every visitor is built from
type Deps struct {
	Restaurants    catalog.Fetcher
	IP             location.IPLocator
	Geocoder       location.ReverseGeocoder
	Accounts       *auth.Accounts
	DefaultLat     float64
	DefaultLon     float64
	UnknownPlace   string
	GeocodeTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// Visitor is one browser client. Components never touch each other's
// state; the visitor connects them through their subscriptions.
type Visitor struct {
	ID       string
	Location *location.Resolver
	Catalog  *catalog.Catalog
	Search   *search.State
	Session  *auth.Session

	client *auth.LocalClient
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	unsubscribe []func()
	lastSeen    atomic.Int64
	closeOnce   sync.Once
}

// New builds a visitor and starts its auth session. A non-empty token is
// used to restore a previous sign-in.
func New(id string, deps Deps, token string) *Visitor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("visitor", id)

	ctx, cancel := context.WithCancel(context.Background())
	v := &Visitor{
		ID: id,
		Location: location.NewResolver(location.Options{
			IP:             deps.IP,
			Geocoder:       deps.Geocoder,
			DefaultLat:     deps.DefaultLat,
			DefaultLon:     deps.DefaultLon,
			UnknownPlace:   deps.UnknownPlace,
			GeocodeTimeout: deps.GeocodeTimeout,
			Logger:         logger,
			Metrics:        deps.Metrics,
		}),
		Catalog: catalog.New(deps.Restaurants, logger, deps.Metrics),
		Search:  search.NewState(),
		client:  auth.NewLocalClient(deps.Accounts, logger),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	v.Session = auth.NewSession(v.client, logger, deps.Metrics)
	v.Touch()

	v.unsubscribe = append(v.unsubscribe,
		v.Location.Subscribe(v.coordinatesChanged),
		v.Catalog.OnReset(v.Search.Sync),
	)

	if token != "" {
		if err := v.client.Restore(ctx, token); err != nil {
			logger.Debug("Token not restored", "error", err)
		}
	}
	v.Session.Initialize()
	return v
}

func (v *Visitor) coordinatesChanged(c models.Coordinates) {
	err := v.Catalog.SetCoordinates(v.ctx, c)
	if err != nil && !errors.Is(err, catalog.ErrStaleResponse) {
		v.logger.Debug("Catalog not loaded for new coordinates", "error", err)
	}
}

// Context is cancelled when the visitor is closed
func (v *Visitor) Context() context.Context {
	return v.ctx
}

// Token is the ID token to persist in the browser, or ""
func (v *Visitor) Token() string {
	return v.client.Token()
}

// TokenExpiry is when Token stops being valid
func (v *Visitor) TokenExpiry() time.Time {
	return v.client.TokenExpiry()
}

func (v *Visitor) Touch() {
	v.lastSeen.Store(time.Now().UnixNano())
}

func (v *Visitor) LastSeen() time.Time {
	return time.Unix(0, v.lastSeen.Load())
}

// Home is everything the home page renders
type Home struct {
	Location location.Snapshot `json:"location"`
	Status   catalog.Status    `json:"status"`
	Error    string            `json:"error,omitempty"`
	View     search.View       `json:"view"`
	// More is true when the list can grow, locally or with another page
	More bool `json:"more"`
}

// Home resolves the location if still pending and derives the current view
func (v *Visitor) Home(ctx context.Context, a location.Attempt) Home {
	v.Location.Ensure(ctx, a)
	snap := v.Catalog.Snapshot()
	view := v.Search.View(snap.Restaurants, snap.Generation)
	return Home{
		Location: v.Location.Snapshot(),
		Status:   snap.Status,
		Error:    snap.Error,
		View:     view,
		More: view.Mode == search.ViewList &&
			(view.HasMore || (snap.HasMore && view.Total < search.MaxResults)),
	}
}

// ShowMore reveals another page of the list, fetching the next catalog page
// once the loaded results are exhausted.
func (v *Visitor) ShowMore() error {
	v.Search.ShowMore()
	snap := v.Catalog.Snapshot()
	view := v.Search.View(snap.Restaurants, snap.Generation)
	if view.HasMore || !snap.HasMore {
		return nil
	}
	return v.ignoreStale(v.Catalog.LoadMore(v.ctx))
}

// SetViewMode switches list/map; the map requests the full result set
func (v *Visitor) SetViewMode(mode search.ViewMode) error {
	v.Search.SetViewMode(mode)
	if v.Search.Mode() != search.ViewMap {
		return nil
	}
	return v.ignoreStale(v.Catalog.LoadAll(v.ctx))
}

func (v *Visitor) Reload() error {
	return v.ignoreStale(v.Catalog.Reload(v.ctx))
}

func (v *Visitor) ignoreStale(err error) error {
	if errors.Is(err, catalog.ErrStaleResponse) {
		return nil
	}
	return err
}

// Close detaches every subscription, stops the auth provider's timers and
// cancels in-flight fetches.
func (v *Visitor) Close() {
	v.closeOnce.Do(func() {
		for _, unsubscribe := range v.unsubscribe {
			unsubscribe()
		}
		v.Session.Close()
		v.client.Close()
		v.cancel()
	})
}
