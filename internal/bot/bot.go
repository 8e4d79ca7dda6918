package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/notify"
)

// Transport is everything the handlers need from the chat platform.
type Transport interface {
	notify.Sender
	AnswerCallback(ctx context.Context, callbackID, text string) error
	SendPhoto(ctx context.Context, chatID int64, name string, png []byte, caption string) error
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	SelfID() int64
}

var _ Transport = (*Client)(nil)

// Client is the Telegram Bot API transport.
type Client struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewClient(token string, log *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName), zap.Int64("bot_id", api.Self.ID))
	return &Client{api: api, log: log}, nil
}

func (c *Client) SelfID() int64 { return c.api.Self.ID }

func (c *Client) Username() string { return c.api.Self.UserName }

func keyboard(rows [][]notify.Action) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		out = append(out, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, msg notify.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	if kb := keyboard(msg.Actions); kb != nil {
		cfg.ReplyMarkup = *kb
	}
	sent, err := c.api.Send(cfg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, msg.Text)
	cfg.ReplyMarkup = keyboard(msg.Actions)
	_, err := c.api.Request(cfg)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (c *Client) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, name string, png []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png})
	cfg.Caption = caption
	_, err := c.api.Send(cfg)
	return err
}

// MemberStatus returns the chat member status of userID in chatID:
// "creator", "administrator", "member", "restricted", "left" or "kicked".
func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

// RegisterCommands publishes the command list shown in the client's menu.
func (c *Client) RegisterCommands() error {
	_, err := c.api.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Register or open the game prompt"},
		tgbotapi.BotCommand{Command: "newgame", Description: "Schedule a game in this group (admin)"},
		tgbotapi.BotCommand{Command: "games", Description: "Show active games (admin)"},
		tgbotapi.BotCommand{Command: "qr", Description: "QR code for registering"},
		tgbotapi.BotCommand{Command: "help", Description: "What this bot does"},
	))
	return err
}

// SetWebhook points Telegram at url; an empty url switches back to polling.
func (c *Client) SetWebhook(url string) error {
	if url == "" {
		_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{})
		return err
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = c.api.Request(wh)
	return err
}

// ParseWebhook decodes the update posted to the webhook endpoint.
func (c *Client) ParseWebhook(r *http.Request) (*tgbotapi.Update, error) {
	return c.api.HandleUpdate(r)
}
