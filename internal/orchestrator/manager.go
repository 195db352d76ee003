package orchestrator

import (
	"errors"
	"sync"
)

// ErrSessionActive is returned when an interview already has a live channel.
var ErrSessionActive = errors.New("interview already has a live channel")

// SessionManager tracks the live channel of every running interview on this
// process. An interview has at most one live channel.
type SessionManager struct {
	mu   sync.Mutex
	live map[string]Channel
}

func NewSessionManager() *SessionManager {
	return &SessionManager{live: make(map[string]Channel)}
}

// Register associates ch with id.
func (m *SessionManager) Register(id string, ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live[id]; ok {
		return ErrSessionActive
	}
	m.live[id] = ch
	return nil
}

// Unregister removes the association only if ch is still the registered
// channel. It reports whether anything was removed.
func (m *SessionManager) Unregister(id string, ch Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.live[id]; ok && cur == ch {
		delete(m.live, id)
		return true
	}
	return false
}

// Owns reports whether ch is the live channel for id.
func (m *SessionManager) Owns(id string, ch Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[id] == ch
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// CloseAll drops every registration and closes the channels. Runs that are
// still waiting on an adapter discard their results.
func (m *SessionManager) CloseAll(reason string) {
	m.mu.Lock()
	live := m.live
	m.live = make(map[string]Channel)
	m.mu.Unlock()

	for _, ch := range live {
		_ = ch.Close(reason)
	}
}
