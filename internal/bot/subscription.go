package bot

import (
	"context"
	"fmt"

	"github.com/mafianight/bot/internal/events"
	"github.com/mafianight/bot/internal/models"
	"github.com/mafianight/bot/internal/notify"
)

// SubscribeAdminNotifications tells the administrator about every recorded
// join or decline.
func SubscribeAdminNotifications(bus *events.Bus, n *notify.Dispatcher, adminID int64) {
	bus.OnResponse(func(ev events.Response) {
		n.SendOne(context.Background(), adminID, notify.Message{Text: responseNotice(ev)})
	})
}

func responseNotice(ev events.Response) string {
	if ev.Status == models.StatusJoined {
		return fmt.Sprintf("%s is joining the game at %s (#%d).", ev.UserName, ev.Game.TimeSlot, ev.Game.ID)
	}
	return fmt.Sprintf("%s is not joining the game at %s (#%d).", ev.UserName, ev.Game.TimeSlot, ev.Game.ID)
}
