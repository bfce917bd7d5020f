package middleware

import (
	"net/http"
	"sync"

	"github.com/pylon-dev/pylon"
)

// SessionStore is the interface pylon's session subsystem exposes,
// resolving the Open Question: the spec leaves the backing store
// unspecified, so it is modeled purely as an interface with one in-memory
// reference implementation (see DESIGN.md).
type SessionStore interface {
	Load(sessionID string) (map[string]interface{}, bool)
	Save(sessionID string, data map[string]interface{})
	Delete(sessionID string)
}

// MemorySessionStore is the in-memory reference SessionStore.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]map[string]interface{}
}

// NewMemorySessionStore returns an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]map[string]interface{})}
}

func (s *MemorySessionStore) Load(sessionID string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[sessionID]
	return v, ok
}

func (s *MemorySessionStore) Save(sessionID string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = data
}

func (s *MemorySessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
}

// SessionConfig configures the order-450 session middleware.
type SessionConfig struct {
	Skipper    Skipper
	Store      SessionStore
	CookieName string
}

// DefaultSessionConfig reads the session ID from a "pylon_session" cookie.
var DefaultSessionConfig = SessionConfig{Skipper: defaultSkipper, CookieName: "pylon_session"}

func (c *SessionConfig) fill() {
	if c.Skipper == nil {
		c.Skipper = DefaultSessionConfig.Skipper
	}
	if c.CookieName == "" {
		c.CookieName = DefaultSessionConfig.CookieName
	}
	if c.Store == nil {
		c.Store = NewMemorySessionStore()
	}
}

const sessionDataKey = "__session_id"

// Session returns the order-450 middleware backed by store. It is
// off by default (§4.5 lists session as "optional"); callers opt in with
// Pipeline.SetEnabled(pylon.OrderSession, true) once a store is wired.
func Session(store SessionStore) pylon.Middleware {
	return SessionWithConfig(SessionConfig{Store: store})
}

// SessionWithConfig returns the order-450 middleware built from config.
// Loaded session data is not threaded onto *pylon.Request directly (which
// carries only string params); handlers needing it should look it up from
// config.Store using the session ID left in req.Params[sessionDataKey].
func SessionWithConfig(config SessionConfig) pylon.Middleware {
	config.fill()

	return pylon.NewMiddlewareWithDefault(pylon.OrderSession, false, func(next pylon.Handler) pylon.Handler {
		return func(req *pylon.Request, res *pylon.Response) error {
			if config.Skipper(req) {
				return next(req, res)
			}

			var sessionID string
			if c, err := (&http.Request{Header: req.Header}).Cookie(config.CookieName); err == nil {
				sessionID = c.Value
			}
			if sessionID != "" {
				if req.Params == nil {
					req.Params = make(map[string]string)
				}
				req.Params[sessionDataKey] = sessionID
			}

			return next(req, res)
		}
	})
}
