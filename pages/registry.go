package pages

import (
	"sync"
	"time"
)

// Registry is the per-worker page registry (§4.10): a primary page_id ->
// Page index plus a secondary user_id -> set<page_id> index, with a
// background sweeper evicting pages idle past a configured TTL.
type Registry struct {
	queueSize int
	policy    BackpressurePolicy
	idleTTL   time.Duration

	mu       sync.RWMutex
	byPage   map[string]*Page
	byUser   map[string]map[string]struct{}

	stop chan struct{}
	once sync.Once
}

// NewRegistry returns a Registry whose pages get a queueSize-deep outbound
// buffer governed by policy, swept for idleTTL inactivity every sweep
// interval once StartSweeper is called.
func NewRegistry(queueSize int, policy BackpressurePolicy, idleTTL time.Duration) *Registry {
	return &Registry{
		queueSize: queueSize,
		policy:    policy,
		idleTTL:   idleTTL,
		byPage:    make(map[string]*Page),
		byUser:    make(map[string]map[string]struct{}),
		stop:      make(chan struct{}),
	}
}

// Create registers a new Page under id for userID, replacing any existing
// page registered under the same id.
func (r *Registry) Create(id, userID string) *Page {
	p := newPage(id, userID, r.queueSize, r.policy)

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byPage[id]; ok {
		old.Close()
		r.removeFromUserIndexLocked(old)
	}
	r.byPage[id] = p
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][id] = struct{}{}
	return p
}

// Get returns the page registered under id, if any.
func (r *Registry) Get(id string) (*Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byPage[id]
	return p, ok
}

// ForUser returns every page currently registered for userID.
func (r *Registry) ForUser(userID string) []*Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]*Page, 0, len(ids))
	for id := range ids {
		if p, ok := r.byPage[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Remove evicts the page registered under id, closing its outbound queue.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPage[id]
	if !ok {
		return
	}
	p.Close()
	delete(r.byPage, id)
	r.removeFromUserIndexLocked(p)
}

func (r *Registry) removeFromUserIndexLocked(p *Page) {
	if set, ok := r.byUser[p.UserID]; ok {
		delete(set, p.ID)
		if len(set) == 0 {
			delete(r.byUser, p.UserID)
		}
	}
}

// Len reports the number of currently registered pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPage)
}

// StartSweeper launches a background goroutine evicting pages idle past
// idleTTL every interval, until Stop is called. Per DESIGN.md's Open
// Question resolution, evicted pages are never resurrected or migrated —
// the next client round-trip simply mints a fresh page_id.
func (r *Registry) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *Registry) sweep() {
	r.mu.RLock()
	var expired []string
	for id, p := range r.byPage {
		if p.IdleSince() > r.idleTTL {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.Remove(id)
	}
}

// Stop halts the sweeper goroutine, if running.
func (r *Registry) Stop() {
	r.once.Do(func() { close(r.stop) })
}
