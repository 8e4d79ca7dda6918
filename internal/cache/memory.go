package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mafianight/bot/internal/models"
)

// Memory keeps rosters in process. It is the default when no Redis address
// is configured.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uint]memEntry
	gens    map[uint]uint64
}

type memEntry struct {
	roster  models.Roster
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uint]memEntry),
		gens:    make(map[uint]uint64),
	}
}

func (m *Memory) Get(_ context.Context, gameID uint) (models.Roster, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[gameID]
	if !ok {
		return models.Roster{}, false
	}
	if m.ttl > 0 && !m.now().Before(e.expires) {
		delete(m.entries, gameID)
		return models.Roster{}, false
	}
	return e.roster, true
}

func (m *Memory) Generation(_ context.Context, gameID uint) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[gameID]
}

func (m *Memory) Set(_ context.Context, gameID uint, gen uint64, r models.Roster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[gameID] != gen {
		return
	}
	m.entries[gameID] = memEntry{roster: r, expires: m.now().Add(m.ttl)}
}

// Invalidate drops the entry and bumps the generation. Generations are kept
// after the entry is gone, so a reader that started earlier cannot match
// a reset counter.
func (m *Memory) Invalidate(_ context.Context, gameID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, gameID)
	m.gens[gameID]++
}
