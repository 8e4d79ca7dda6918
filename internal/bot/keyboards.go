package bot

import (
	"fmt"

	"github.com/mafianight/bot/internal/models"
	"github.com/mafianight/bot/internal/notify"
	"github.com/mafianight/bot/internal/payload"
)

func AdminPrompt() notify.Message {
	return notify.Message{
		Text: "Do we play Mafia today?",
		Actions: [][]notify.Action{{
			{Label: "Yes", Data: payload.Payload{Kind: payload.AdminYes}.String()},
			{Label: "No", Data: payload.Payload{Kind: payload.AdminNo}.String()},
		}},
	}
}

// slotPicker offers one button per slot. kind is PickSlot for every group or
// PickGroupSlot for the chat the picker is shown in.
func slotPicker(kind payload.Kind, slots []string) notify.Message {
	rows := make([][]notify.Action, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, []notify.Action{{Label: s, Data: payload.Payload{Kind: kind, Slot: s}.String()}})
	}
	return notify.Message{Text: "Select a time slot:", Actions: rows}
}

func registerPrompt() notify.Message {
	return notify.Message{
		Text:    "Click below to join the Mafia club!",
		Actions: [][]notify.Action{{{Label: "Join the club", Data: payload.Payload{Kind: payload.Register}.String()}}},
	}
}

func groupPicker(groups []models.Group) notify.Message {
	if len(groups) == 0 {
		return notify.Message{Text: "No groups yet. Add the bot to a group and make it an administrator."}
	}
	rows := make([][]notify.Action, 0, len(groups))
	for _, g := range groups {
		title := g.Title
		if title == "" {
			title = fmt.Sprintf("chat %d", g.ID)
		}
		rows = append(rows, []notify.Action{{Label: title, Data: payload.Payload{Kind: payload.ViewGames, GroupID: g.ID}.String()}})
	}
	return notify.Message{Text: "Pick a group:", Actions: rows}
}

func gameList(title string, games []models.Game) notify.Message {
	if len(games) == 0 {
		return notify.Message{Text: fmt.Sprintf("No active games in %s.", title)}
	}
	rows := make([][]notify.Action, 0, len(games))
	for _, g := range games {
		rows = append(rows, []notify.Action{
			{Label: fmt.Sprintf("#%d %s players", g.ID, g.TimeSlot), Data: payload.Payload{Kind: payload.ViewPlayers, GameID: g.ID}.String()},
			{Label: "Delete", Data: payload.Payload{Kind: payload.DeleteGame, GameID: g.ID}.String()},
		})
	}
	return notify.Message{Text: fmt.Sprintf("Active games in %s:", title), Actions: rows}
}

const helpText = `Mafia night organizer.

/start - register as a player (the administrator gets the game prompt)
/newgame - schedule a game in this group (administrator)
/games - list and manage active games (administrator)
/qr - QR code that opens the registration
/help - this message`
