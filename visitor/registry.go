package visitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry maps visitor IDs (the session cookie) to visitors
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	visitors map[string]*Visitor
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		deps:     deps,
		idleTTL:  idleTTL,
		logger:   logger.With("component", "visitors"),
		visitors: make(map[string]*Visitor),
	}
}

// Acquire returns the visitor for id, creating one when id is unknown.
// Malformed IDs are replaced by a fresh uuid. token restores a sign-in on
// creation only.
func (r *Registry) Acquire(id, token string) (v *Visitor, created bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	if v, ok := r.lookup(id); ok {
		return v, false
	}

	// New may restore the token from the database; it runs unlocked and a
	// duplicate built by a racing request is closed.
	fresh := New(id, r.deps, token)

	r.mu.Lock()
	if v, ok := r.visitors[id]; ok {
		r.mu.Unlock()
		fresh.Close()
		v.Touch()
		return v, false
	}
	r.visitors[id] = fresh
	r.mu.Unlock()

	r.deps.Metrics.VisitorOpened()
	r.logger.Debug("Visitor created", "visitor", id)
	return fresh, true
}

func (r *Registry) lookup(id string) (*Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors[id]
	if ok {
		v.Touch()
	}
	return v, ok
}

func (r *Registry) Get(id string) (*Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors[id]
	return v, ok
}

// Remove closes and forgets the visitor with id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	v, ok := r.visitors[id]
	delete(r.visitors, id)
	r.mu.Unlock()
	if ok {
		v.Close()
		r.deps.Metrics.VisitorClosed()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Sweep closes visitors idle since before now minus the idle TTL and
// returns how many were evicted.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Visitor
	for id, v := range r.visitors {
		if v.LastSeen().Before(cutoff) {
			idle = append(idle, v)
			delete(r.visitors, id)
		}
	}
	r.mu.Unlock()

	for _, v := range idle {
		v.Close()
		r.deps.Metrics.VisitorClosed()
	}
	if len(idle) > 0 {
		r.logger.Info("Evicted idle visitors", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps every tick until ctx is done
func (r *Registry) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// CloseAll tears down every visitor
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.visitors
	r.visitors = make(map[string]*Visitor)
	r.mu.Unlock()

	for _, v := range all {
		v.Close()
		r.deps.Metrics.VisitorClosed()
	}
}
