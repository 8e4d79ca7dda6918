// Package cache holds a non-authoritative read-through cache of game rosters.
// Participation rows stay the source of truth; entries are dropped on every
// write to the game and expire on their own.
//
// Every game has a generation that Invalidate bumps. A reader takes the
// generation before loading the roster and hands it to Set, which stores
// nothing if the game was invalidated in between.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/models"
)

type RosterCache interface {
	Get(ctx context.Context, gameID uint) (models.Roster, bool)
	// Generation must be read before the roster is loaded from the store.
	Generation(ctx context.Context, gameID uint) uint64
	Set(ctx context.Context, gameID uint, gen uint64, r models.Roster)
	Invalidate(ctx context.Context, gameID uint)
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, uint) (models.Roster, bool)  { return models.Roster{}, false }
func (Nop) Generation(context.Context, uint) uint64          { return 0 }
func (Nop) Set(context.Context, uint, uint64, models.Roster) {}
func (Nop) Invalidate(context.Context, uint)                 {}

// genTTL outlives any roster load by far; a generation key that expired
// restarts at zero, which no in-flight reader still holds.
const genTTL = 7 * 24 * time.Hour

var errStale = errors.New("roster invalidated during load")

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis connects to addr and pings it. Cache errors after this point are
// logged and treated as misses.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Info("roster cache connected", zap.String("addr", addr), zap.Int("db", db))
	return &Redis{client: client, ttl: ttl, log: log}, nil
}

func key(gameID uint) string {
	return fmt.Sprintf("mafia:roster:%d", gameID)
}

func genKey(gameID uint) string {
	return fmt.Sprintf("mafia:roster:%d:gen", gameID)
}

func (c *Redis) Get(ctx context.Context, gameID uint) (models.Roster, bool) {
	raw, err := c.client.Get(ctx, key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Roster{}, false
	}
	if err != nil {
		c.log.Warn("roster cache get failed", zap.Uint("game_id", gameID), zap.Error(err))
		return models.Roster{}, false
	}
	var r models.Roster
	if err := json.Unmarshal(raw, &r); err != nil {
		c.log.Warn("roster cache entry corrupt", zap.Uint("game_id", gameID), zap.Error(err))
		return models.Roster{}, false
	}
	return r, true
}

func (c *Redis) Generation(ctx context.Context, gameID uint) uint64 {
	gen, err := c.client.Get(ctx, genKey(gameID)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		// a wrong guess only costs the following Set
		c.log.Warn("roster generation read failed", zap.Uint("game_id", gameID), zap.Error(err))
	}
	return gen
}

// Set writes r under WATCH of the generation key, so a concurrent Invalidate
// either aborts the write or deletes it afterwards.
func (c *Redis) Set(ctx context.Context, gameID uint, gen uint64, r models.Roster) {
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(gameID)).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(gameID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey(gameID))

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("stale roster not cached", zap.Uint("game_id", gameID))
	default:
		c.log.Warn("roster cache set failed", zap.Uint("game_id", gameID), zap.Error(err))
	}
}

func (c *Redis) Invalidate(ctx context.Context, gameID uint) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(gameID))
		pipe.Expire(ctx, genKey(gameID), genTTL)
		pipe.Del(ctx, key(gameID))
		return nil
	})
	if err != nil {
		c.log.Warn("roster cache invalidate failed", zap.Uint("game_id", gameID), zap.Error(err))
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}
