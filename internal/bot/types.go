package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Event is one inbound update, decoded once. It is one of CommandEvent,
// ButtonPress or MembershipChange.
type Event interface {
	kind() string
}

type CommandEvent struct {
	ChatID    int64
	ChatType  string // private, group, supergroup, channel
	ChatTitle string
	UserID    int64
	UserName  string
	Command   string // without the slash or @botname
	Args      string
}

type ButtonPress struct {
	CallbackID  string
	ChatID      int64
	MessageID   int
	MessageText string
	UserID      int64
	UserName    string
	Data        string
}

// MembershipChange reports the bot's own status change in a chat.
type MembershipChange struct {
	ChatID    int64
	ChatType  string
	ChatTitle string
	Status    string
}

func (CommandEvent) kind() string     { return "command" }
func (ButtonPress) kind() string      { return "button" }
func (MembershipChange) kind() string { return "membership" }

func (e CommandEvent) InGroup() bool {
	return e.ChatType == "group" || e.ChatType == "supergroup"
}

// Decode turns an update into an Event. ok is false for updates the bot
// does not act on.
func Decode(u tgbotapi.Update) (ev Event, ok bool) {
	switch {
	case u.Message != nil && u.Message.IsCommand() && u.Message.From != nil && u.Message.Chat != nil:
		m := u.Message
		return CommandEvent{
			ChatID:    m.Chat.ID,
			ChatType:  m.Chat.Type,
			ChatTitle: m.Chat.Title,
			UserID:    m.From.ID,
			UserName:  displayName(m.From),
			Command:   strings.ToLower(m.Command()),
			Args:      strings.TrimSpace(m.CommandArguments()),
		}, true

	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		q := u.CallbackQuery
		ev := ButtonPress{
			CallbackID: q.ID,
			UserID:     q.From.ID,
			UserName:   displayName(q.From),
			Data:       q.Data,
		}
		if q.Message != nil && q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
			ev.MessageID = q.Message.MessageID
			ev.MessageText = q.Message.Text
		}
		return ev, true

	case u.MyChatMember != nil:
		m := u.MyChatMember
		return MembershipChange{
			ChatID:    m.Chat.ID,
			ChatType:  m.Chat.Type,
			ChatTitle: m.Chat.Title,
			Status:    m.NewChatMember.Status,
		}, true
	}
	return nil, false
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
