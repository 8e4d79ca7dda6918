package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/models"
	"github.com/mafianight/bot/internal/store"
)

// Registry keeps the set of registered players and served groups.
type Registry struct {
	store *store.Store
	log   *zap.Logger
}

func NewRegistry(st *store.Store, log *zap.Logger) *Registry {
	return &Registry{store: st, log: log}
}

// RegisterUser creates the player once. Later calls return the stored row
// unchanged with created=false.
func (r *Registry) RegisterUser(ctx context.Context, telegramID int64, name string) (user *models.User, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("player %d", telegramID)
	}
	err = r.store.Tx(ctx, func(tx *store.Store) error {
		existing, err := tx.UserByTelegramID(ctx, telegramID)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		user = &models.User{TelegramID: telegramID, Name: name}
		created = true
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, false, fmt.Errorf("register user %d: %w", telegramID, err)
	}
	if created {
		r.log.Info("user registered", zap.Int64("user_id", telegramID), zap.String("name", name))
	}
	return user, created, nil
}

func (r *Registry) IsRegistered(ctx context.Context, telegramID int64) (bool, error) {
	_, err := r.store.UserByTelegramID(ctx, telegramID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddGroup records a chat where the bot became administrator. Repeating it
// refreshes the title.
func (r *Registry) AddGroup(ctx context.Context, chatID int64, title string) error {
	if err := r.store.UpsertGroup(ctx, &models.Group{ID: chatID, Title: title}); err != nil {
		return fmt.Errorf("add group %d: %w", chatID, err)
	}
	r.log.Info("group added", zap.Int64("group_id", chatID), zap.String("title", title))
	return nil
}

// RemoveGroup forgets a chat together with its games and their answers.
func (r *Registry) RemoveGroup(ctx context.Context, chatID int64) error {
	err := r.store.Tx(ctx, func(tx *store.Store) error {
		return tx.DeleteGroup(ctx, chatID)
	})
	if err != nil {
		return fmt.Errorf("remove group %d: %w", chatID, err)
	}
	r.log.Info("group removed", zap.Int64("group_id", chatID))
	return nil
}

func (r *Registry) ListGroups(ctx context.Context) ([]models.Group, error) {
	return r.store.ListGroups(ctx)
}

func (r *Registry) Group(ctx context.Context, chatID int64) (*models.Group, error) {
	return r.store.GroupByID(ctx, chatID)
}
