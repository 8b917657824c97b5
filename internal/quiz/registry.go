package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/snapshot"
)

var ErrSessionNotFound = errors.New("session not found")

type registryEntry struct {
	sess     *Session
	lastSeen time.Time
}

// Registry holds the live sessions of the HTTP API, keyed by token. Sessions
// idle for longer than the TTL are dropped by Sweep; their snapshots remain.
type Registry struct {
	catalog   *assessment.Catalog
	submitter Submitter
	opts      Options
	ttl       time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*registryEntry
}

func NewRegistry(catalog *assessment.Catalog, submitter Submitter, opts Options, ttl time.Duration) *Registry {
	return &Registry{
		catalog:   catalog,
		submitter: submitter,
		opts:      opts.withDefaults(),
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*registryEntry),
	}
}

func (r *Registry) Catalog() *assessment.Catalog { return r.catalog }

// Snapshots is the store sessions write their results to.
func (r *Registry) Snapshots() snapshot.Store { return r.opts.Snapshots }

// Create starts a new session under a fresh token.
func (r *Registry) Create() *Session {
	sess := NewSession(uuid.NewString(), r.catalog, r.submitter, r.opts)

	r.mu.Lock()
	r.sessions[sess.ID()] = &registryEntry{sess: sess, lastSeen: r.now()}
	r.mu.Unlock()
	return sess
}

// Get returns the session for token and marks it as recently used.
func (r *Registry) Get(token string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.sess, nil
}

// Lookup returns the session without touching it, or nil.
func (r *Registry) Lookup(token string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[token]; ok {
		return e.sess
	}
	return nil
}

func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions with a
// submission in flight are kept. It returns the number removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, e := range r.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		if state, _ := e.sess.State(); state == StateSubmitting {
			continue
		}
		delete(r.sessions, token)
		removed++
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.opts.Logger.Debug("swept idle quiz sessions", "removed", n)
			}
		}
	}
}
