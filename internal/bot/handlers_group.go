package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
)

func isAdminStatus(status string) bool {
	return status == "administrator" || status == "creator"
}

func isGoneStatus(status string) bool {
	return status == "left" || status == "kicked"
}

// onMembership keeps the group list in step with where the bot is an
// administrator. Private chats and other statuses are ignored.
func (d *Dispatcher) onMembership(ctx context.Context, e MembershipChange) error {
	if e.ChatType != "group" && e.ChatType != "supergroup" {
		return nil
	}
	switch {
	case isAdminStatus(e.Status):
		return d.Registry.AddGroup(ctx, e.ChatID, e.ChatTitle)
	case isGoneStatus(e.Status):
		err := d.Registry.RemoveGroup(ctx, e.ChatID)
		if errors.Is(err, apperrors.ErrGroupNotFound) {
			return nil
		}
		return err
	default:
		d.Log.Debug("membership change ignored",
			zap.Int64("chat_id", e.ChatID),
			zap.String("status", e.Status),
		)
		return nil
	}
}
