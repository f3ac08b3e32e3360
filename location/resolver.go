// Package location resolves where a visitor is: the browser's geolocation
// fix when it has one, otherwise the client IP, otherwise a fixed default.
package location

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"larica/metrics"
	"larica/models"
	"larica/pubsub"

	"golang.org/x/sync/singleflight"
)

// Status of the resolver
type Status string

const (
	StatusPending        Status = "pending"
	StatusResolved       Status = "resolved"
	StatusFailedFallback Status = "failed-fallback"
)

// Source names the link of the chain that produced the coordinates
type Source string

const (
	SourceDevice  Source = "device"
	SourceIP      Source = "ip"
	SourceDefault Source = "default"
)

var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
	ErrDeviceTimeout       = errors.New("geolocation timed out")
	ErrDeviceUnsupported   = errors.New("geolocation not supported")
)

// DeviceError maps a browser GeolocationPositionError code to an error
func DeviceError(code int) error {
	switch code {
	case 1:
		return ErrPermissionDenied
	case 2:
		return ErrPositionUnavailable
	case 3:
		return ErrDeviceTimeout
	default:
		return ErrDeviceUnsupported
	}
}

// Fix is a position reported by one source
type Fix struct {
	Lat  float64
	Lon  float64
	City string
}

// Attempt is the input of one resolution: what the browser reported and
// where the request came from.
type Attempt struct {
	Device    *Fix
	DeviceErr error
	ClientIP  string
}

// Snapshot is the published state of a resolver
type Snapshot struct {
	Coordinates *models.Coordinates `json:"coordinates"`
	Status      Status              `json:"status"`
	Source      Source              `json:"source,omitempty"`
	Place       string              `json:"place,omitempty"`
	Available   bool                `json:"available"`
}

type Options struct {
	IP             IPLocator
	Geocoder       ReverseGeocoder
	DefaultLat     float64
	DefaultLon     float64
	UnknownPlace   string
	GeocodeTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// Resolver owns one visitor's coordinates. Each attempt publishes exactly
// once to subscribers.
type Resolver struct {
	ip             IPLocator
	geocoder       ReverseGeocoder
	fallback       Fix
	unknownPlace   string
	geocodeTimeout time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics

	group singleflight.Group
	hub   pubsub.Hub[models.Coordinates]

	mu        sync.RWMutex
	coords    *models.Coordinates
	status    Status
	source    Source
	place     string
	freshness uint64
}

func NewResolver(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UnknownPlace == "" {
		opts.UnknownPlace = "Unknown"
	}
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = 3 * time.Second
	}
	return &Resolver{
		ip:             opts.IP,
		geocoder:       opts.Geocoder,
		fallback:       Fix{Lat: opts.DefaultLat, Lon: opts.DefaultLon},
		unknownPlace:   opts.UnknownPlace,
		geocodeTimeout: opts.GeocodeTimeout,
		logger:         opts.Logger.With("component", "location"),
		metrics:        opts.Metrics,
		status:         StatusPending,
	}
}

// Subscribe registers fn for every published coordinate set
func (r *Resolver) Subscribe(fn func(models.Coordinates)) func() {
	return r.hub.Subscribe(fn)
}

// Ensure resolves only while the resolver is still pending. Concurrent
// callers share one attempt, which outlives the cancellation of whichever
// caller started it.
func (r *Resolver) Ensure(ctx context.Context, a Attempt) models.Coordinates {
	if c, ok := r.current(); ok {
		return c
	}
	shared := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do("resolve", func() (any, error) {
		if c, ok := r.current(); ok {
			return c, nil
		}
		return r.Resolve(shared, a), nil
	})
	return v.(models.Coordinates)
}

// Resolve runs one attempt through the fallback chain. It never fails: the
// worst outcome is the configured default coordinate.
func (r *Resolver) Resolve(ctx context.Context, a Attempt) models.Coordinates {
	fix, source := r.locate(ctx, a)

	r.mu.Lock()
	r.freshness++
	coords := models.Coordinates{Lat: fix.Lat, Lon: fix.Lon, Freshness: r.freshness}
	r.coords = &coords
	r.source = source
	r.place = fix.City
	if source == SourceDefault {
		r.status = StatusFailedFallback
	} else {
		r.status = StatusResolved
	}
	r.mu.Unlock()

	r.metrics.LocationResolved(string(source))
	r.logger.Info("Location resolved",
		"source", source,
		"lat", coords.Lat,
		"lon", coords.Lon,
		"freshness", coords.Freshness,
	)
	r.hub.Publish(coords)

	if fix.City == "" {
		r.lookupPlace(ctx, coords)
	}
	return coords
}

// Snapshot returns the current state
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{Status: r.status, Source: r.source, Place: r.place}
	if r.coords != nil {
		c := *r.coords
		s.Coordinates = &c
		s.Available = !c.IsSentinel()
	}
	return s
}

func (r *Resolver) current() (models.Coordinates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.coords == nil {
		return models.Coordinates{}, false
	}
	return *r.coords, true
}

func (r *Resolver) locate(ctx context.Context, a Attempt) (Fix, Source) {
	if a.Device != nil {
		c := models.Coordinates{Lat: a.Device.Lat, Lon: a.Device.Lon}
		if c.Valid() && !c.IsSentinel() {
			return *a.Device, SourceDevice
		}
		r.logger.Warn("Ignoring invalid device fix", "lat", a.Device.Lat, "lon", a.Device.Lon)
	} else if a.DeviceErr != nil {
		r.logger.Debug("Device geolocation failed", "error", a.DeviceErr)
	}

	if r.ip != nil {
		fix, err := r.ip.LocateIP(ctx, a.ClientIP)
		if err == nil {
			return fix, SourceIP
		}
		r.logger.Warn("IP geolocation failed", "client_ip", a.ClientIP, "error", err)
	}

	return r.fallback, SourceDefault
}

// lookupPlace is best effort; it only writes the place if no newer attempt
// has happened in the meantime.
func (r *Resolver) lookupPlace(ctx context.Context, coords models.Coordinates) {
	place := r.unknownPlace
	if r.geocoder != nil && !coords.IsSentinel() {
		gctx, cancel := context.WithTimeout(ctx, r.geocodeTimeout)
		name, err := r.geocoder.ReverseGeocode(gctx, coords.Lat, coords.Lon)
		cancel()
		if err != nil {
			r.logger.Debug("Reverse geocoding failed", "error", err)
		} else {
			place = name
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freshness == coords.Freshness {
		r.place = place
	}
}
