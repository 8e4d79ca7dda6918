package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/models"
)

func TestRegisterUser_Once(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.registry.IsRegistered(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	u, created, err := f.registry.RegisterUser(ctx, 7, "  Ann ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ann", u.Name)

	again, created, err := f.registry.RegisterUser(ctx, 7, "Renamed")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Ann", again.Name, "users are immutable once registered")

	ok, err = f.registry.IsRegistered(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterUser_BlankName(t *testing.T) {
	f := newFixture(t)
	u, _, err := f.registry.RegisterUser(context.Background(), 9, " ")
	require.NoError(t, err)
	assert.Equal(t, "player 9", u.Name)
}

func TestAddGroup_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.registry.AddGroup(ctx, -100, "Club"))
	require.NoError(t, f.registry.AddGroup(ctx, -100, "Club night"))

	groups, err := f.registry.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Club night", groups[0].Title)
}

func TestRemoveGroup_CascadesToGames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.registry.AddGroup(ctx, -100, "Club"))
	require.NoError(t, f.registry.AddGroup(ctx, -200, "Other"))
	_, _, err := f.registry.RegisterUser(ctx, 1, "Ann")
	require.NoError(t, err)

	g, err := f.games.CreateGame(ctx, -100, "19:00-20:00")
	require.NoError(t, err)
	other, err := f.games.CreateGame(ctx, -200, "19:00-20:00")
	require.NoError(t, err)
	_, err = f.responses.Respond(ctx, 1, g.ID, models.StatusJoined)
	require.NoError(t, err)

	require.NoError(t, f.registry.RemoveGroup(ctx, -100))

	_, err = f.games.Game(ctx, g.ID)
	assert.ErrorIs(t, err, apperrors.ErrGameNotFound)
	n, err := f.store.CountParticipations(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.games.Game(ctx, other.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.registry.RemoveGroup(ctx, -100), apperrors.ErrGroupNotFound)
}
