package internal

import (
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRegistry holds open editors and closes those left idle past the TTL.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Editor
	ttl      time.Duration
	j        *janitor
	l        *StdLog
}

func NewSessionRegistry(l *StdLog, ttl time.Duration) *SessionRegistry {
	r := &SessionRegistry{
		sessions: map[string]*Editor{},
		ttl:      ttl,
		l:        l,
	}
	if ttl > 0 {
		r.j = newJanitor(DefaultJanitorInterval)
		go r.j.Run(r)
	}
	return r
}

func (r *SessionRegistry) Add(e *Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[e.ID()] = e
}

func (r *SessionRegistry) Get(id string) (*Editor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.Close()
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) DeleteExpired() {
	deadline := time.Now().Add(-r.ttl)
	r.mu.Lock()
	var expired []*Editor
	for id, e := range r.sessions {
		if e.IdleSince().Before(deadline) {
			expired = append(expired, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, e := range expired {
		r.l.Info("session %s expired", e.ID())
		e.Close()
	}
}

func (r *SessionRegistry) Shutdown() {
	if r.j != nil {
		r.j.Stop()
	}
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Editor{}
	r.mu.Unlock()
	for _, e := range sessions {
		e.Close()
	}
}
