package services

import (
	"context"
	"fmt"
	"iter"
	"regexp"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/cache"
	"github.com/mafianight/bot/internal/metrics"
	"github.com/mafianight/bot/internal/models"
	"github.com/mafianight/bot/internal/notify"
	"github.com/mafianight/bot/internal/payload"
	"github.com/mafianight/bot/internal/store"
)

// AllGroups lists games of every group.
const AllGroups int64 = 0

const listPageSize = 50

var slotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d-([01]\d|2[0-3]):[0-5]\d$`)

// ValidSlot reports whether s is an "HH:MM-HH:MM" label.
func ValidSlot(s string) bool {
	return slotPattern.MatchString(s)
}

// Games owns game creation, listing, deletion and the invitation broadcast.
type Games struct {
	store    *store.Store
	notifier *notify.Dispatcher
	cache    cache.RosterCache
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewGames(st *store.Store, n *notify.Dispatcher, c cache.RosterCache, m *metrics.Metrics, log *zap.Logger) *Games {
	if c == nil {
		c = cache.Nop{}
	}
	return &Games{store: st, notifier: n, cache: c, metrics: m, log: log}
}

// CreateGame inserts an active game for groupID. Equal slots in one group are
// allowed.
func (g *Games) CreateGame(ctx context.Context, groupID int64, timeSlot string) (*models.Game, error) {
	if !ValidSlot(timeSlot) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidTimeSlot, timeSlot)
	}
	game := &models.Game{TimeSlot: timeSlot, Active: true, GroupID: groupID}
	err := g.store.Tx(ctx, func(tx *store.Store) error {
		if _, err := tx.GroupByID(ctx, groupID); err != nil {
			return err
		}
		return tx.CreateGame(ctx, game)
	})
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	g.metrics.IncGameCreated()
	g.log.Info("game created",
		zap.Uint("game_id", game.ID),
		zap.Int64("group_id", groupID),
		zap.String("time_slot", timeSlot),
	)
	return game, nil
}

// ListActiveGames yields active games in creation order, one page at a time.
// Ranging over the result again restarts from the first game.
func (g *Games) ListActiveGames(ctx context.Context, groupID int64) iter.Seq2[models.Game, error] {
	return func(yield func(models.Game, error) bool) {
		var after uint
		for {
			page, err := g.store.ActiveGamesAfter(ctx, groupID, after, listPageSize)
			if err != nil {
				yield(models.Game{}, fmt.Errorf("list active games: %w", err))
				return
			}
			for _, game := range page {
				if !yield(game, nil) {
					return
				}
				after = game.ID
			}
			if len(page) < listPageSize {
				return
			}
		}
	}
}

// CollectActiveGames drains ListActiveGames into a slice.
func (g *Games) CollectActiveGames(ctx context.Context, groupID int64) ([]models.Game, error) {
	var out []models.Game
	for game, err := range g.ListActiveGames(ctx, groupID) {
		if err != nil {
			return nil, err
		}
		out = append(out, game)
	}
	return out, nil
}

func (g *Games) Game(ctx context.Context, gameID uint) (*models.Game, error) {
	return g.store.GameByID(ctx, gameID)
}

// DeleteGame removes the game and every participation in it.
func (g *Games) DeleteGame(ctx context.Context, gameID uint) error {
	err := g.store.Tx(ctx, func(tx *store.Store) error {
		return tx.DeleteGame(ctx, gameID)
	})
	if err != nil {
		return fmt.Errorf("delete game %d: %w", gameID, err)
	}
	g.cache.Invalidate(ctx, gameID)
	g.metrics.IncGameDeleted()
	g.log.Info("game deleted", zap.Uint("game_id", gameID))
	return nil
}

// Invitation is the group message announcing a game.
func Invitation(game models.Game) notify.Message {
	return InvitationWithRoster(game, models.Roster{})
}

// InvitationWithRoster is the invitation as it reads once players answered.
func InvitationWithRoster(game models.Game, r models.Roster) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("Mafia tonight at %s. Are you in?\n\n%s", game.TimeSlot, r.Text()),
		Actions: [][]notify.Action{{
			{Label: "Join", Data: payload.JoinGame(game.ID)},
			{Label: "Decline", Data: payload.DeclineGame(game.ID)},
		}},
	}
}

// Announce sends the invitation to the game's group and pins it. A failed
// pin is logged only.
func (g *Games) Announce(ctx context.Context, game models.Game) notify.Result {
	res := g.notifier.SendOne(ctx, game.GroupID, Invitation(game))
	if res.OK() {
		if err := g.notifier.Pin(ctx, res); err != nil {
			g.log.Debug("invitation not pinned", zap.Uint("game_id", game.ID), zap.Error(err))
		}
	}
	return res
}

// ScheduleEverywhere creates one game per registered group and broadcasts
// the invitations. A group that cannot be reached does not stop the others.
func (g *Games) ScheduleEverywhere(ctx context.Context, timeSlot string) ([]models.Game, []notify.Result, error) {
	if !ValidSlot(timeSlot) {
		return nil, nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidTimeSlot, timeSlot)
	}
	groups, err := g.store.ListGroups(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list groups: %w", err)
	}

	byGroup := make(map[int64]models.Game, len(groups))
	games := make([]models.Game, 0, len(groups))
	recipients := make([]int64, 0, len(groups))
	for _, grp := range groups {
		game, err := g.CreateGame(ctx, grp.ID, timeSlot)
		if err != nil {
			// group removed between list and create
			g.log.Warn("skipping group", zap.Int64("group_id", grp.ID), zap.Error(err))
			continue
		}
		byGroup[grp.ID] = *game
		games = append(games, *game)
		recipients = append(recipients, grp.ID)
	}

	results := g.notifier.Broadcast(ctx, recipients, func(groupID int64) notify.Message {
		return Invitation(byGroup[groupID])
	})
	for _, res := range results {
		if res.OK() {
			if err := g.notifier.Pin(ctx, res); err != nil {
				g.log.Debug("invitation not pinned", zap.Int64("group_id", res.RecipientID), zap.Error(err))
			}
		}
	}
	return games, results, nil
}

// ScheduleInGroup creates and announces one game in groupID. If the
// invitation cannot be delivered the game is deleted again and the delivery
// error is returned, so no unannounced game stays listed.
func (g *Games) ScheduleInGroup(ctx context.Context, groupID int64, timeSlot string) (*models.Game, notify.Result, error) {
	game, err := g.CreateGame(ctx, groupID, timeSlot)
	if err != nil {
		return nil, notify.Result{}, err
	}
	res := g.Announce(ctx, *game)
	if res.OK() {
		return game, res, nil
	}
	// the invitation never went out, so the game must not outlive the request
	if derr := g.DeleteGame(context.WithoutCancel(ctx), game.ID); derr != nil {
		g.log.Error("unannounced game left behind", zap.Uint("game_id", game.ID), zap.Error(derr))
	}
	return nil, res, fmt.Errorf("announce game in %d: %w", groupID, res.Err)
}
