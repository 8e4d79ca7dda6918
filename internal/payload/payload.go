// Package payload encodes and decodes the short tokens carried by inline
// buttons, e.g. "join_yes_12" or "time_19:00-19:30".
package payload

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mafianight/bot/internal/apperrors"
)

type Kind int

const (
	AdminYes Kind = iota + 1
	AdminNo
	Register
	PickSlot      // time_<slot>: schedule in every group
	PickGroupSlot // game_time_<slot>: schedule in the group the button lives in
	ViewGames     // view_games_<groupId>
	ViewPlayers   // view_players_<gameId>
	DeleteGame    // delete_game_<gameId>
	Join          // join_yes_<gameId>
	Decline       // join_no_<gameId>
)

var kindNames = map[Kind]string{
	AdminYes:      "admin_yes",
	AdminNo:       "admin_no",
	Register:      "register",
	PickSlot:      "pick_slot",
	PickGroupSlot: "pick_group_slot",
	ViewGames:     "view_games",
	ViewPlayers:   "view_players",
	DeleteGame:    "delete_game",
	Join:          "join",
	Decline:       "decline",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Payload is a decoded button token. Only the field matching Kind is set.
type Payload struct {
	Kind    Kind
	Slot    string
	GroupID int64
	GameID  uint
}

// Prefixes of the parameterized tokens. Telegram limits callback data to
// 64 bytes, which every token here stays well under.
const (
	prefixGroupSlot   = "game_time_"
	prefixSlot        = "time_"
	prefixViewGames   = "view_games_"
	prefixViewPlayers = "view_players_"
	prefixDeleteGame  = "delete_game_"
	prefixJoin        = "join_yes_"
	prefixDecline     = "join_no_"
)

var (
	slotRe  = regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`)
	idRe    = regexp.MustCompile(`^[1-9]\d*$`)
	groupRe = regexp.MustCompile(`^-?[1-9]\d*$`)
)

// Parse decodes data. Anything that is not exactly one of the known tokens
// fails with apperrors.ErrMalformedPayload.
func Parse(data string) (Payload, error) {
	switch data {
	case "admin_yes":
		return Payload{Kind: AdminYes}, nil
	case "admin_no":
		return Payload{Kind: AdminNo}, nil
	case "register":
		return Payload{Kind: Register}, nil
	}

	if rest, ok := strings.CutPrefix(data, prefixGroupSlot); ok {
		return slot(data, PickGroupSlot, rest)
	}
	if rest, ok := strings.CutPrefix(data, prefixSlot); ok {
		return slot(data, PickSlot, rest)
	}
	if rest, ok := strings.CutPrefix(data, prefixViewGames); ok {
		if !groupRe.MatchString(rest) {
			return Payload{}, apperrors.Malformed(data)
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Payload{}, apperrors.Malformed(data)
		}
		return Payload{Kind: ViewGames, GroupID: id}, nil
	}
	if rest, ok := strings.CutPrefix(data, prefixViewPlayers); ok {
		return game(data, ViewPlayers, rest)
	}
	if rest, ok := strings.CutPrefix(data, prefixDeleteGame); ok {
		return game(data, DeleteGame, rest)
	}
	if rest, ok := strings.CutPrefix(data, prefixJoin); ok {
		return game(data, Join, rest)
	}
	if rest, ok := strings.CutPrefix(data, prefixDecline); ok {
		return game(data, Decline, rest)
	}
	return Payload{}, apperrors.Malformed(data)
}

func slot(data string, k Kind, rest string) (Payload, error) {
	if !slotRe.MatchString(rest) {
		return Payload{}, apperrors.Malformed(data)
	}
	return Payload{Kind: k, Slot: rest}, nil
}

func game(data string, k Kind, rest string) (Payload, error) {
	if !idRe.MatchString(rest) {
		return Payload{}, apperrors.Malformed(data)
	}
	id, err := strconv.ParseUint(rest, 10, 0)
	if err != nil {
		return Payload{}, apperrors.Malformed(data)
	}
	return Payload{Kind: k, GameID: uint(id)}, nil
}

// String encodes p back into its token.
func (p Payload) String() string {
	switch p.Kind {
	case AdminYes:
		return "admin_yes"
	case AdminNo:
		return "admin_no"
	case Register:
		return "register"
	case PickSlot:
		return prefixSlot + p.Slot
	case PickGroupSlot:
		return prefixGroupSlot + p.Slot
	case ViewGames:
		return prefixViewGames + strconv.FormatInt(p.GroupID, 10)
	case ViewPlayers:
		return fmt.Sprintf("%s%d", prefixViewPlayers, p.GameID)
	case DeleteGame:
		return fmt.Sprintf("%s%d", prefixDeleteGame, p.GameID)
	case Join:
		return fmt.Sprintf("%s%d", prefixJoin, p.GameID)
	case Decline:
		return fmt.Sprintf("%s%d", prefixDecline, p.GameID)
	}
	return ""
}

func JoinGame(gameID uint) string    { return Payload{Kind: Join, GameID: gameID}.String() }
func DeclineGame(gameID uint) string { return Payload{Kind: Decline, GameID: gameID}.String() }
