package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/cache"
	"github.com/mafianight/bot/internal/events"
	"github.com/mafianight/bot/internal/keylock"
	"github.com/mafianight/bot/internal/metrics"
	"github.com/mafianight/bot/internal/models"
	"github.com/mafianight/bot/internal/store"
)

// Responses records join/decline answers and builds rosters.
type Responses struct {
	store   *store.Store
	cache   cache.RosterCache
	bus     *events.Bus
	metrics *metrics.Metrics
	log     *zap.Logger
	locks   keylock.Map[participationKey]
}

func NewResponses(st *store.Store, c cache.RosterCache, bus *events.Bus, m *metrics.Metrics, log *zap.Logger) *Responses {
	if c == nil {
		c = cache.Nop{}
	}
	return &Responses{store: st, cache: c, bus: bus, metrics: m, log: log}
}

// Respond stores choice for (telegramUserID, gameID). A repeated choice
// returns ErrRedundantResponse and writes nothing.
func (r *Responses) Respond(ctx context.Context, telegramUserID int64, gameID uint, choice models.Status) (*models.Game, error) {
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, choice)
	}

	unlock := r.locks.Lock(participationKey{user: telegramUserID, game: gameID})
	defer unlock()

	var (
		game *models.Game
		user *models.User
	)
	err := r.store.Tx(ctx, func(tx *store.Store) error {
		var err error
		if game, err = tx.GameByID(ctx, gameID); err != nil {
			return err
		}
		if user, err = tx.UserByTelegramID(ctx, telegramUserID); err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return apperrors.ErrUserNotRegistered
			}
			return err
		}
		current, ok, err := tx.Participation(ctx, telegramUserID, gameID)
		if err != nil {
			return err
		}
		if ok && current.Status == choice {
			return apperrors.ErrRedundantResponse
		}
		now := time.Now()
		return tx.UpsertParticipation(ctx, &models.Participation{
			UserID:    telegramUserID,
			GameID:    gameID,
			Status:    choice,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if errors.Is(err, apperrors.ErrRedundantResponse) {
		r.metrics.IncRedundantResponse()
		return game, err
	}
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}

	r.cache.Invalidate(ctx, gameID)
	r.metrics.IncResponse(string(choice))
	r.log.Info("response recorded",
		zap.Int64("user_id", telegramUserID),
		zap.Uint("game_id", gameID),
		zap.String("status", string(choice)),
	)
	r.bus.PublishResponse(events.Response{
		UserName: user.Name,
		UserID:   telegramUserID,
		Game:     *game,
		Status:   choice,
	})
	return game, nil
}

// RosterFor returns the joined and declined names for a game, oldest answer
// first. A deleted game yields ErrGameNotFound.
func (r *Responses) RosterFor(ctx context.Context, gameID uint) (models.Roster, error) {
	if _, err := r.store.GameByID(ctx, gameID); err != nil {
		return models.Roster{}, err
	}
	if cached, ok := r.cache.Get(ctx, gameID); ok {
		return cached, nil
	}

	gen := r.cache.Generation(ctx, gameID)
	rows, err := r.store.RosterRows(ctx, gameID)
	if err != nil {
		return models.Roster{}, fmt.Errorf("roster for game %d: %w", gameID, err)
	}
	var roster models.Roster
	for _, row := range rows {
		switch row.Status {
		case models.StatusJoined:
			roster.Joined = append(roster.Joined, row.Name)
		case models.StatusDeclined:
			roster.Declined = append(roster.Declined, row.Name)
		}
	}
	r.cache.Set(ctx, gameID, gen, roster)
	return roster, nil
}

type participationKey struct {
	user int64
	game uint
}
