// Package store is the persistence gateway: plain CRUD over users, groups,
// games and participations. It holds no business rules.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Tx runs fn inside one transaction. It commits when fn returns nil and rolls
// back on error or panic, so the handle is always released.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// ---------- Users ----------

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.conn(ctx).Create(u).Error
}

func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var u models.User
	err := s.conn(ctx).Where("telegram_id = ?", telegramID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ---------- Groups ----------

// UpsertGroup inserts the group or refreshes its title.
func (s *Store) UpsertGroup(ctx context.Context, g *models.Group) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title"}),
	}).Create(g).Error
}

func (s *Store) GroupByID(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	err := s.conn(ctx).First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := s.conn(ctx).Order("created_at asc, id asc").Find(&groups).Error
	return groups, err
}

// DeleteGroup removes the group together with its games and their
// participations. Call it inside Tx.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	db := s.conn(ctx)
	gameIDs := db.Model(&models.Game{}).Select("id").Where("group_id = ?", id)
	if err := db.Where("game_id IN (?)", gameIDs).Delete(&models.Participation{}).Error; err != nil {
		return err
	}
	if err := db.Where("group_id = ?", id).Delete(&models.Game{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Group{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrGroupNotFound
	}
	return nil
}

// ---------- Games ----------

func (s *Store) CreateGame(ctx context.Context, g *models.Game) error {
	return s.conn(ctx).Create(g).Error
}

func (s *Store) GameByID(ctx context.Context, id uint) (*models.Game, error) {
	var g models.Game
	err := s.conn(ctx).First(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGamesAfter returns up to limit active games with id > afterID in id
// order. groupID 0 means every group.
func (s *Store) ActiveGamesAfter(ctx context.Context, groupID int64, afterID uint, limit int) ([]models.Game, error) {
	q := s.conn(ctx).Where("active = ? AND id > ?", true, afterID)
	if groupID != 0 {
		q = q.Where("group_id = ?", groupID)
	}
	var games []models.Game
	err := q.Order("id asc").Limit(limit).Find(&games).Error
	return games, err
}

// DeleteGame removes the game's participations, then the game. Call it inside Tx.
func (s *Store) DeleteGame(ctx context.Context, id uint) error {
	db := s.conn(ctx)
	if err := db.Where("game_id = ?", id).Delete(&models.Participation{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Game{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrGameNotFound
	}
	return nil
}

// ---------- Participations ----------

// Participation returns the stored answer for (user, game); ok is false when
// the user has not answered yet.
func (s *Store) Participation(ctx context.Context, userID int64, gameID uint) (p *models.Participation, ok bool, err error) {
	var row models.Participation
	err = s.conn(ctx).Where("user_id = ? AND game_id = ?", userID, gameID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &row, true, nil
}

// UpsertParticipation inserts the row or overwrites the status of the
// existing (user, game) row in one statement.
func (s *Store) UpsertParticipation(ctx context.Context, p *models.Participation) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(p).Error
}

func (s *Store) CountParticipations(ctx context.Context, gameID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Participation{}).Where("game_id = ?", gameID).Count(&n).Error
	return n, err
}

type RosterRow struct {
	Name   string
	Status models.Status
}

// RosterRows joins participations to users, oldest answer first.
func (s *Store) RosterRows(ctx context.Context, gameID uint) ([]RosterRow, error) {
	var rows []RosterRow
	err := s.conn(ctx).Table("participations").
		Select("users.name AS name, participations.status AS status").
		Joins("JOIN users ON users.telegram_id = participations.user_id").
		Where("participations.game_id = ?", gameID).
		Order("participations.id asc").
		Scan(&rows).Error
	return rows, err
}
