package services_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/cache"
	"github.com/mafianight/bot/internal/events"
	"github.com/mafianight/bot/internal/models"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func seedGame(t *testing.T, f *fixture) *models.Game {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.registry.AddGroup(ctx, -100, "Club"))
	g, err := f.games.CreateGame(ctx, -100, "19:00-19:30")
	require.NoError(t, err)
	return g
}

func TestRespond_LastChoiceWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	for _, s := range []models.Status{models.StatusJoined, models.StatusDeclined, models.StatusJoined, models.StatusDeclined} {
		_, err := f.responses.Respond(ctx, 1, g.ID, s)
		require.NoError(t, err)
	}

	roster, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, roster.Joined)
	assert.Equal(t, []string{"Ann"}, roster.Declined)

	n, err := f.store.CountParticipations(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRespond_RedundantIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.NoError(t, err)
	before, ok, err := f.store.Participation(ctx, 1, g.ID)
	require.NoError(t, err)
	require.True(t, ok)

	game, err := f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	assert.ErrorIs(t, err, apperrors.ErrRedundantResponse)
	require.NotNil(t, game)
	assert.Equal(t, g.ID, game.ID)

	after, ok, err := f.store.Participation(ctx, 1, g.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before.Status, after.Status)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestRespond_RegistrationGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)

	_, err := f.responses.Respond(ctx, 42, g.ID, models.StatusJoined)
	assert.ErrorIs(t, err, apperrors.ErrUserNotRegistered)

	n, err := f.store.CountParticipations(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRespond_GameNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	_, err = f.responses.Respond(ctx, 1, 999, models.StatusJoined)
	assert.ErrorIs(t, err, apperrors.ErrGameNotFound)
}

func TestRespond_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	g := seedGame(t, f)
	_, err := f.responses.Respond(context.Background(), 1, g.ID, models.Status("maybe"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestRespond_ConcurrentSameUserNoDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := models.StatusJoined
			if i%2 == 1 {
				s = models.StatusDeclined
			}
			_, _ = f.responses.Respond(ctx, 1, g.ID, s)
		}(i)
	}
	wg.Wait()

	// a final serialized answer decides the roster
	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusDeclined)
	if err != nil {
		require.ErrorIs(t, err, apperrors.ErrRedundantResponse)
	}

	n, err := f.store.CountParticipations(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	roster, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann"}, roster.Declined)
	assert.Empty(t, roster.Joined)
}

func TestRespond_ConcurrentDifferentUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)
	for i := int64(1); i <= 10; i++ {
		_, _, err := f.registry.RegisterUser(ctx, i, "p"+strconv.FormatInt(i, 10))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := int64(1); i <= 10; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := f.responses.Respond(ctx, uid, g.ID, models.StatusJoined)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	roster, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, roster.Joined, 10)
}

func TestRosterFor_OrderAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)
	for i, name := range []string{"Ann", "Bob", "Cid"} {
		_, _, err := f.registry.RegisterUser(ctx, int64(i+1), name)
		require.NoError(t, err)
	}
	_, err := f.responses.Respond(ctx, 2, g.ID, models.StatusJoined)
	require.NoError(t, err)
	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.NoError(t, err)
	_, err = f.responses.Respond(ctx, 3, g.ID, models.StatusDeclined)
	require.NoError(t, err)

	first, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	second, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bob", "Ann"}, first.Joined)
	assert.Equal(t, []string{"Cid"}, first.Declined)
	assert.Equal(t, first.Text(), second.Text())
}

func TestRosterFor_EmptyGame(t *testing.T) {
	f := newFixture(t)
	g := seedGame(t, f)

	roster, err := f.responses.RosterFor(context.Background(), g.ID)
	require.NoError(t, err)
	assert.True(t, roster.Empty())
}

func TestRespond_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGame(t, f)
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	var got []events.Response
	f.bus.OnResponse(func(ev events.Response) { got = append(got, ev) })

	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.NoError(t, err)
	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.ErrorIs(t, err, apperrors.ErrRedundantResponse)

	require.Len(t, got, 1, "redundant answers are not published")
	assert.Equal(t, "Ann", got[0].UserName)
	assert.Equal(t, g.ID, got[0].Game.ID)
	assert.Equal(t, models.StatusJoined, got[0].Status)
}

// interleavingCache runs beforeSet once, right before the first Set, to land
// a write between the roster load and the cache store.
type interleavingCache struct {
	*cache.Memory
	once      sync.Once
	beforeSet func()
}

func (c *interleavingCache) Set(ctx context.Context, gameID uint, gen uint64, r models.Roster) {
	c.once.Do(func() {
		if c.beforeSet != nil {
			c.beforeSet()
		}
	})
	c.Memory.Set(ctx, gameID, gen, r)
}

func TestRosterFor_ResponseDuringLoadIsNotHidden(t *testing.T) {
	c := &interleavingCache{Memory: cache.NewMemory(10 * time.Minute)}
	f := newCachedFixture(t, c)
	ctx := context.Background()
	g := seedGame(t, f)
	for id, name := range map[int64]string{1: "Ann", 2: "Bob"} {
		_, _, err := f.registry.RegisterUser(ctx, id, name)
		require.NoError(t, err)
	}
	_, err := f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.NoError(t, err)

	c.beforeSet = func() {
		_, err := f.responses.Respond(ctx, 2, g.ID, models.StatusJoined)
		require.NoError(t, err)
	}
	first, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann"}, first.Joined)

	roster, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bob"}, roster.Joined)
}

func TestRosterFor_CachedUntilNextResponse(t *testing.T) {
	f := newCachedFixture(t, cache.NewMemory(10*time.Minute))
	ctx := context.Background()
	g := seedGame(t, f)
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.NoError(t, err)
	r1, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann"}, r1.Joined)

	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusDeclined)
	require.NoError(t, err)
	r2, err := f.responses.RosterFor(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, r2.Joined)
	assert.Equal(t, []string{"Ann"}, r2.Declined)

	require.NoError(t, f.games.DeleteGame(ctx, g.ID))
	_, err = f.responses.RosterFor(ctx, g.ID)
	assert.ErrorIs(t, err, apperrors.ErrGameNotFound)
}
