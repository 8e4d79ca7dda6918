package bot

import (
	"context"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/payload"
)

// startRegister is the /start argument carried by the registration deep link.
const startRegister = "register"

func (d *Dispatcher) onCommand(ctx context.Context, e CommandEvent) error {
	var err error
	switch e.Command {
	case "start":
		err = d.cmdStart(ctx, e)
	case "newgame":
		err = d.cmdNewGame(ctx, e)
	case "games":
		err = d.cmdGames(ctx, e)
	case "qr":
		err = d.cmdQR(ctx, e)
	case "help":
		d.reply(ctx, e.ChatID, helpText)
	default:
		// commands meant for other bots in a group are none of our business
		if !e.InGroup() {
			d.reply(ctx, e.ChatID, "Unknown command. Try /help.")
		}
	}
	if err != nil {
		d.logFailure("command failed", err,
			zap.String("command", e.Command),
			zap.Int64("chat_id", e.ChatID),
			zap.Int64("user_id", e.UserID),
		)
		d.reply(ctx, e.ChatID, apperrors.UserMessage(err))
	}
	return err
}

func (d *Dispatcher) cmdStart(ctx context.Context, e CommandEvent) error {
	if e.InGroup() {
		d.reply(ctx, e.ChatID, "Hi! Message me privately with /start to register.")
		return nil
	}
	if d.isAdmin(e.UserID) {
		d.Notifier.SendOne(ctx, e.ChatID, AdminPrompt())
		return nil
	}

	if e.Args == startRegister {
		return d.register(ctx, e.ChatID, e.UserID, e.UserName)
	}
	ok, err := d.Registry.IsRegistered(ctx, e.UserID)
	if err != nil {
		return err
	}
	if ok {
		d.reply(ctx, e.ChatID, "You are already registered!")
		return nil
	}
	d.Notifier.SendOne(ctx, e.ChatID, registerPrompt())
	return nil
}

func (d *Dispatcher) register(ctx context.Context, chatID, userID int64, name string) error {
	_, created, err := d.Registry.RegisterUser(ctx, userID, name)
	if err != nil {
		return err
	}
	if created {
		d.reply(ctx, chatID, "You have successfully joined the club!")
	} else {
		d.reply(ctx, chatID, "You have already joined!")
	}
	return nil
}

func (d *Dispatcher) cmdNewGame(ctx context.Context, e CommandEvent) error {
	if !d.isAdmin(e.UserID) {
		return apperrors.ErrForbidden
	}
	if !e.InGroup() {
		d.reply(ctx, e.ChatID, "Use /newgame inside a group, or /start here to schedule in every group.")
		return nil
	}
	ok, err := d.ensureGroup(ctx, e.ChatID, e.ChatTitle)
	if err != nil {
		return err
	}
	if !ok {
		d.reply(ctx, e.ChatID, "Make me an administrator of this group first.")
		return nil
	}
	d.Notifier.SendOne(ctx, e.ChatID, slotPicker(payload.PickGroupSlot, d.TimeSlots))
	return nil
}

// ensureGroup registers a chat the bot already administers but never got a
// membership update for, e.g. one joined while the bot was offline. ok is
// false when the bot is not an administrator there.
func (d *Dispatcher) ensureGroup(ctx context.Context, chatID int64, title string) (ok bool, err error) {
	_, err = d.Registry.Group(ctx, chatID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, apperrors.ErrGroupNotFound) {
		return false, err
	}
	status, err := d.Transport.MemberStatus(ctx, chatID, d.Transport.SelfID())
	if err != nil {
		return false, fmt.Errorf("bot status in %d: %w", chatID, err)
	}
	if !isAdminStatus(status) {
		return false, nil
	}
	return true, d.Registry.AddGroup(ctx, chatID, title)
}

func (d *Dispatcher) cmdGames(ctx context.Context, e CommandEvent) error {
	if !d.isAdmin(e.UserID) {
		return apperrors.ErrForbidden
	}
	if e.InGroup() {
		games, err := d.Games.CollectActiveGames(ctx, e.ChatID)
		if err != nil {
			return err
		}
		d.Notifier.SendOne(ctx, e.ChatID, gameList(e.ChatTitle, games))
		return nil
	}
	groups, err := d.Registry.ListGroups(ctx)
	if err != nil {
		return err
	}
	d.Notifier.SendOne(ctx, e.ChatID, groupPicker(groups))
	return nil
}

func (d *Dispatcher) cmdQR(ctx context.Context, e CommandEvent) error {
	if d.BotUsername == "" {
		d.reply(ctx, e.ChatID, "QR codes are not configured.")
		return nil
	}
	png, err := RegistrationQR(d.BotUsername, 256)
	if err != nil {
		return err
	}
	if err := d.Transport.SendPhoto(ctx, e.ChatID, "register.png", png, "Scan to join the Mafia club"); err != nil {
		d.Log.Warn("qr delivery failed", zap.Int64("recipient_id", e.ChatID), zap.Error(err))
		return apperrors.Delivery(e.ChatID, err)
	}
	return nil
}

// RegistrationLink is the deep link that opens a private chat with the bot
// and registers the user.
func RegistrationLink(botUsername string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, startRegister)
}

// RegistrationQR renders RegistrationLink as a PNG of the given size.
func RegistrationQR(botUsername string, size int) ([]byte, error) {
	return qrcode.Encode(RegistrationLink(botUsername), qrcode.Medium, size)
}
