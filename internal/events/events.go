package events

import (
	"sync"

	"github.com/mafianight/bot/internal/models"
)

// Response is published after a participation row changed.
type Response struct {
	UserName string
	UserID   int64
	Game     models.Game
	Status   models.Status
}

// Bus fans a Response out to every subscriber, synchronously and in
// subscription order. The zero value is ready to use.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Response)
}

func (b *Bus) OnResponse(fn func(Response)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *Bus) PublishResponse(ev Response) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
