package mcp

import (
	"net/http"
	"sort"
	"sync"
	"time"
)

// Session kinds tracked by the HTTP server.
const (
	SessionSSE       = "sse"
	SessionWebSocket = "websocket"
)

// SessionInfo describes one live HTTP-side session.
type SessionInfo struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Opened time.Time `json:"opened"`
}

type sessionEntry struct {
	info SessionInfo
	// handler receives client->server POSTs; nil for websocket sessions.
	handler http.Handler
}

// SessionRegistry maps session ids to live transports. Entries are added
// when a stream connects and removed when it closes.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

// Add registers id. An existing entry with the same id is replaced.
func (r *SessionRegistry) Add(id, kind string, handler http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = sessionEntry{
		info:    SessionInfo{ID: id, Kind: kind, Opened: r.now()},
		handler: handler,
	}
}

// Handler returns the message handler of id. Websocket sessions have none.
func (r *SessionRegistry) Handler(id string) (http.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok || e.handler == nil {
		return nil, false
	}
	return e.handler, true
}

// Remove deletes id and reports whether it was present.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the live sessions ordered by open time.
func (r *SessionRegistry) List() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Opened.Equal(out[j].Opened) {
			return out[i].ID < out[j].ID
		}
		return out[i].Opened.Before(out[j].Opened)
	})
	return out
}
