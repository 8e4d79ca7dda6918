package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/models"
	"github.com/mafianight/bot/internal/notify"
	"github.com/mafianight/bot/internal/payload"
	"github.com/mafianight/bot/internal/services"
)

var adminOnly = map[payload.Kind]bool{
	payload.AdminYes:      true,
	payload.AdminNo:       true,
	payload.PickSlot:      true,
	payload.PickGroupSlot: true,
	payload.ViewGames:     true,
	payload.ViewPlayers:   true,
	payload.DeleteGame:    true,
}

// onButton handles a button press. The press is answered exactly once,
// whatever happens, so the client never shows a stuck spinner.
func (d *Dispatcher) onButton(ctx context.Context, e ButtonPress) (err error) {
	var notice string
	defer func() {
		if err != nil {
			notice = apperrors.UserMessage(err)
			d.logFailure("button failed", err,
				zap.String("data", e.Data),
				zap.Int64("chat_id", e.ChatID),
				zap.Int64("user_id", e.UserID),
			)
		}
		if aerr := d.Transport.AnswerCallback(ctx, e.CallbackID, notice); aerr != nil {
			d.Log.Warn("callback answer failed", zap.Int64("recipient_id", e.UserID), zap.Error(aerr))
		}
	}()

	p, err := payload.Parse(e.Data)
	if err != nil {
		return err
	}
	if adminOnly[p.Kind] && !d.isAdmin(e.UserID) {
		return apperrors.ErrForbidden
	}

	here := notify.Handle{ChatID: e.ChatID, MessageID: e.MessageID, Text: e.MessageText}
	switch p.Kind {
	case payload.AdminYes:
		return d.refresh(ctx, here, slotPicker(payload.PickSlot, d.TimeSlots))
	case payload.AdminNo:
		return d.refresh(ctx, here, notify.Message{Text: "Okay, no game today!"})
	case payload.PickSlot:
		notice, err = d.scheduleEverywhere(ctx, here, p.Slot)
	case payload.PickGroupSlot:
		notice, err = d.scheduleHere(ctx, here, p.Slot)
	case payload.ViewGames:
		err = d.showGames(ctx, here, p.GroupID)
	case payload.ViewPlayers:
		err = d.showPlayers(ctx, e.ChatID, p.GameID)
	case payload.DeleteGame:
		notice, err = d.deleteGame(ctx, here, p.GameID)
	case payload.Register:
		err = d.register(ctx, e.ChatID, e.UserID, e.UserName)
	case payload.Join:
		notice, err = d.respond(ctx, e, here, p.GameID, models.StatusJoined)
	case payload.Decline:
		notice, err = d.respond(ctx, e, here, p.GameID, models.StatusDeclined)
	}
	return err
}

// refresh edits the message the button belongs to. Edit failures are logged
// by the notifier and do not fail the action.
func (d *Dispatcher) refresh(ctx context.Context, h notify.Handle, msg notify.Message) error {
	if h.MessageID == 0 {
		d.Notifier.SendOne(ctx, h.ChatID, msg)
		return nil
	}
	_, _ = d.Notifier.Refresh(ctx, h, msg)
	return nil
}

func (d *Dispatcher) scheduleEverywhere(ctx context.Context, here notify.Handle, slot string) (string, error) {
	games, results, err := d.Games.ScheduleEverywhere(ctx, slot)
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return "", d.refresh(ctx, here, notify.Message{Text: "No groups yet. Add the bot to a group and make it an administrator."})
	}
	delivered := 0
	for _, r := range results {
		if r.OK() {
			delivered++
		}
	}
	text := fmt.Sprintf("Game scheduled at %s! Invitations delivered to %d of %d groups.", slot, delivered, len(results))
	return "Scheduled", d.refresh(ctx, here, notify.Message{Text: text})
}

func (d *Dispatcher) scheduleHere(ctx context.Context, here notify.Handle, slot string) (string, error) {
	game, _, err := d.Games.ScheduleInGroup(ctx, here.ChatID, slot)
	if err != nil {
		return "", err
	}
	if here.MessageID != 0 {
		_ = d.Notifier.Remove(ctx, here.ChatID, here.MessageID)
	}
	d.Log.Info("game announced", zap.Uint("game_id", game.ID), zap.Int64("group_id", here.ChatID))
	return "Game scheduled at " + slot, nil
}

func (d *Dispatcher) showGames(ctx context.Context, here notify.Handle, groupID int64) error {
	group, err := d.Registry.Group(ctx, groupID)
	if err != nil {
		return err
	}
	games, err := d.Games.CollectActiveGames(ctx, groupID)
	if err != nil {
		return err
	}
	return d.refresh(ctx, here, gameList(group.Title, games))
}

func (d *Dispatcher) showPlayers(ctx context.Context, chatID int64, gameID uint) error {
	game, err := d.Games.Game(ctx, gameID)
	if err != nil {
		return err
	}
	roster, err := d.Responses.RosterFor(ctx, gameID)
	if err != nil {
		return err
	}
	d.reply(ctx, chatID, fmt.Sprintf("Game #%d at %s\n\n%s", game.ID, game.TimeSlot, roster.Text()))
	return nil
}

func (d *Dispatcher) deleteGame(ctx context.Context, here notify.Handle, gameID uint) (string, error) {
	game, err := d.Games.Game(ctx, gameID)
	if err != nil {
		return "", err
	}
	if err := d.Games.DeleteGame(ctx, gameID); err != nil {
		return "", err
	}

	title := fmt.Sprintf("chat %d", game.GroupID)
	if g, err := d.Registry.Group(ctx, game.GroupID); err == nil {
		title = g.Title
	}
	games, err := d.Games.CollectActiveGames(ctx, game.GroupID)
	if err != nil {
		return "Game deleted", err
	}
	return "Game deleted", d.refresh(ctx, here, gameList(title, games))
}

func (d *Dispatcher) respond(ctx context.Context, e ButtonPress, here notify.Handle, gameID uint, choice models.Status) (string, error) {
	game, err := d.Responses.Respond(ctx, e.UserID, gameID, choice)
	if err != nil {
		return "", err
	}

	if here.MessageID != 0 {
		d.refreshInvitation(ctx, *game, here)
	}

	if choice == models.StatusJoined {
		return "Okay, you joined!", nil
	}
	return "Maybe next time!", nil
}

// refreshInvitation rewrites the invitation with the current roster. Loading
// and editing happen under one lock per game, so the last edit always
// carries the newest roster. The press's snapshot of the message text may
// predate another press's edit, so it is not used to skip the edit.
func (d *Dispatcher) refreshInvitation(ctx context.Context, game models.Game, here notify.Handle) {
	unlock := d.invitations.Lock(game.ID)
	defer unlock()

	roster, err := d.Responses.RosterFor(ctx, game.ID)
	switch {
	case errors.Is(err, apperrors.ErrGameNotFound):
		// deleted right after the answer; nothing left to refresh
		return
	case err != nil:
		d.Log.Warn("roster unavailable", zap.Uint("game_id", game.ID), zap.Error(err))
		return
	}
	current := notify.Handle{ChatID: here.ChatID, MessageID: here.MessageID}
	_, _ = d.Notifier.Refresh(ctx, current, services.InvitationWithRoster(game, roster))
}
