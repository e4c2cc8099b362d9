package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/coder/quartz"
)

type entry struct {
	mu      sync.Mutex
	session games.Session
	touched time.Time
	removed bool
}

// Memory is an in-process SessionStore.
type Memory struct {
	clock quartz.Clock

	mu      sync.RWMutex
	entries map[string]*entry
}

var _ SessionStore = (*Memory)(nil)

// NewMemory returns an empty store. A nil clock uses wall time.
func NewMemory(clock quartz.Clock) *Memory {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Memory{clock: clock, entries: make(map[string]*entry)}
}

func (m *Memory) Create(_ context.Context, s games.Session) error {
	if s.ID == "" {
		return errors.New("store: session id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[s.ID]; ok {
		return fmt.Errorf("create %s: %w", s.ID, ErrExists)
	}
	m.entries[s.ID] = &entry{session: s, touched: m.clock.Now()}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (games.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return games.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return games.Session{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return e.session, nil
}

func (m *Memory) Update(ctx context.Context, id string, fn UpdateFunc) (games.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return games.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return games.Session{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return e.session, err
	}
	next, err := fn(e.session)
	if err != nil {
		return e.session, err
	}
	e.session = next
	e.touched = m.clock.Now()
	return next, nil
}

func (m *Memory) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		// Skip sessions with an action in flight.
		if !e.mu.TryLock() {
			continue
		}
		if e.session.Status.Terminal() && e.touched.Before(cutoff) {
			e.removed = true
			delete(m.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed, nil
}

func (m *Memory) Expire(ctx context.Context, cutoff time.Time, fn UpdateFunc) ([]games.Session, error) {
	m.mu.RLock()
	candidates := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		candidates = append(candidates, e)
	}
	m.mu.RUnlock()

	var expired []games.Session
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		// Busy sessions aren't idle; leave them for the next pass.
		if !e.mu.TryLock() {
			continue
		}
		if e.removed || e.session.Status.Terminal() || !e.touched.Before(cutoff) {
			e.mu.Unlock()
			continue
		}
		next, err := fn(e.session)
		if err != nil {
			id := e.session.ID
			e.mu.Unlock()
			return expired, fmt.Errorf("expire %s: %w", id, err)
		}
		e.session = next
		e.touched = m.clock.Now()
		e.mu.Unlock()
		expired = append(expired, next)
	}
	return expired, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return e, nil
}
