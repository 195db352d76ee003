// Package store persists interview sessions as whole JSON documents keyed by id.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/spigell/interviewer/internal/interview"
)

// Store is a durable key-value store of sessions. Put replaces the full record
// atomically. Get returns interview.ErrNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (*interview.Session, error)
	Put(ctx context.Context, s *interview.Session) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*interview.Session, error)
}

// keyedMutex serializes writers per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func encode(s *interview.Session) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, fmt.Errorf("session with an id is required")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

func decode(id string, data []byte) (*interview.Session, error) {
	var s interview.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if !s.Status.Valid() {
		return nil, fmt.Errorf("decode session %s: unknown status %q", id, s.Status)
	}
	if s.Transcript == nil {
		s.Transcript = []interview.Turn{}
	}
	if s.InitialQuestions == nil {
		s.InitialQuestions = []string{}
	}
	return &s, nil
}

func sortByCreation(sessions []*interview.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
