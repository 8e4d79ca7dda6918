package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/cache"
	"github.com/mafianight/bot/internal/db"
	"github.com/mafianight/bot/internal/events"
	"github.com/mafianight/bot/internal/metrics"
	"github.com/mafianight/bot/internal/notify"
	"github.com/mafianight/bot/internal/services"
	"github.com/mafianight/bot/internal/store"
)

type fakeSender struct {
	mu     sync.Mutex
	fail   map[int64]bool
	sent   map[int64][]notify.Message
	pinned []int
	nextID int
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, msg notify.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return 0, errors.New("Forbidden: bot was kicked from the group chat")
	}
	if f.sent == nil {
		f.sent = make(map[int64][]notify.Message)
	}
	f.sent[chatID] = append(f.sent[chatID], msg)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSender) EditMessage(context.Context, int64, int, notify.Message) error { return nil }
func (f *fakeSender) DeleteMessage(context.Context, int64, int) error               { return nil }

func (f *fakeSender) PinMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, messageID)
	return nil
}

type fixture struct {
	store     *store.Store
	sender    *fakeSender
	bus       *events.Bus
	games     *services.Games
	responses *services.Responses
	registry  *services.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newCachedFixture(t, nil)
}

// newCachedFixture shares c between the game and response services; nil
// means no cache.
func newCachedFixture(t *testing.T, c cache.RosterCache) *fixture {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=on"
	gdb, err := db.Open(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	log := zap.NewNop()
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), log)
	st := store.New(gdb)
	sender := &fakeSender{fail: map[int64]bool{}}
	d := notify.NewDispatcher(sender, 0, m, log)
	bus := &events.Bus{}

	return &fixture{
		store:     st,
		sender:    sender,
		bus:       bus,
		games:     services.NewGames(st, d, c, m, log),
		responses: services.NewResponses(st, c, bus, m, log),
		registry:  services.NewRegistry(st, log),
	}
}
