package models

import "time"

// User is a registered player, keyed by Telegram user id.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"` // unique player identity
	Name       string `gorm:"not null"`
	CreatedAt  time.Time

	Participations []Participation `gorm:"foreignKey:UserID;references:TelegramID;constraint:OnDelete:CASCADE"`
}

// Group is a chat where the bot is an administrator. ID is the chat id.
type Group struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Title     string `gorm:"not null"`
	CreatedAt time.Time

	Games []Game `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

type Game struct {
	ID        uint   `gorm:"primaryKey"`
	TimeSlot  string `gorm:"not null"`
	Active    bool   `gorm:"not null;default:true;index"`
	GroupID   int64  `gorm:"not null;index"`
	CreatedAt time.Time

	Participations []Participation `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

// Status: "joined", "declined". No row means no response yet.
type Status string

const (
	StatusJoined   Status = "joined"
	StatusDeclined Status = "declined"
)

func (s Status) Valid() bool {
	return s == StatusJoined || s == StatusDeclined
}

// Participation is one player's answer for one game. (UserID, GameID) is unique.
type Participation struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null;uniqueIndex:idx_participation_user_game"` // users.telegram_id
	GameID    uint   `gorm:"not null;uniqueIndex:idx_participation_user_game;index"`
	Status    Status `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
