package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Command(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/NewGame@mafia_bot now",
		From:     &tgbotapi.User{ID: 7, FirstName: "Ann", LastName: "Lee"},
		Chat:     &tgbotapi.Chat{ID: -5, Type: "supergroup", Title: "Club"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 18}},
	}}

	ev, ok := Decode(u)
	require.True(t, ok)
	cmd, isCmd := ev.(CommandEvent)
	require.True(t, isCmd)
	assert.Equal(t, "newgame", cmd.Command)
	assert.Equal(t, "now", cmd.Args)
	assert.Equal(t, "Ann Lee", cmd.UserName)
	assert.True(t, cmd.InGroup())
}

func TestDecode_Button(t *testing.T) {
	u := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: 7, UserName: "ann"},
		Data: "join_yes_3",
		Message: &tgbotapi.Message{
			MessageID: 42,
			Text:      "Mafia tonight",
			Chat:      &tgbotapi.Chat{ID: -5},
		},
	}}

	ev, ok := Decode(u)
	require.True(t, ok)
	assert.Equal(t, ButtonPress{
		CallbackID:  "cb",
		ChatID:      -5,
		MessageID:   42,
		MessageText: "Mafia tonight",
		UserID:      7,
		UserName:    "ann",
		Data:        "join_yes_3",
	}, ev)
}

func TestDecode_Membership(t *testing.T) {
	u := tgbotapi.Update{MyChatMember: &tgbotapi.ChatMemberUpdated{
		Chat:          tgbotapi.Chat{ID: -5, Type: "group", Title: "Club"},
		NewChatMember: tgbotapi.ChatMember{Status: "kicked"},
	}}

	ev, ok := Decode(u)
	require.True(t, ok)
	assert.Equal(t, MembershipChange{ChatID: -5, ChatType: "group", ChatTitle: "Club", Status: "kicked"}, ev)
}

func TestDecode_IgnoresOthers(t *testing.T) {
	_, ok := Decode(tgbotapi.Update{})
	assert.False(t, ok)

	_, ok = Decode(tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "just chatting",
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1},
	}})
	assert.False(t, ok)
}
