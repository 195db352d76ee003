package orchestrator

import (
	"errors"
	"sync"
	"testing"
)

func TestSessionManagerRegisterOnce(t *testing.T) {
	m := NewSessionManager()
	a, b := newFakeChannel(), newFakeChannel()

	if err := m.Register("x", a); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register("x", b); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if !m.Owns("x", a) || m.Owns("x", b) {
		t.Fatalf("unexpected ownership")
	}

	if m.Unregister("x", b) {
		t.Fatalf("foreign channel must not unregister the live one")
	}
	if !m.Unregister("x", a) {
		t.Fatalf("expected live channel to unregister")
	}
	if m.Owns("x", a) || m.Len() != 0 {
		t.Fatalf("expected no live sessions")
	}
}

func TestSessionManagerConcurrentRegister(t *testing.T) {
	m := NewSessionManager()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Register("same", newFakeChannel()); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("expected exactly one registration, got %d", won)
	}
}

func TestSessionManagerCloseAll(t *testing.T) {
	m := NewSessionManager()
	a, b := newFakeChannel(), newFakeChannel()
	_ = m.Register("a", a)
	_ = m.Register("b", b)

	m.CloseAll("shutdown")

	if m.Len() != 0 {
		t.Fatalf("expected registrations to be dropped")
	}
	if !a.isClosed() || !b.isClosed() {
		t.Fatalf("expected channels to be closed")
	}
}
