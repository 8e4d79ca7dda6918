package models

import (
	"fmt"
	"strings"
)

// Roster is the joined/declined split of a game's participations, in
// first-answer order.
type Roster struct {
	Joined   []string `json:"joined"`
	Declined []string `json:"declined"`
}

func (r Roster) Empty() bool {
	return len(r.Joined) == 0 && len(r.Declined) == 0
}

// Text renders the roster as plain text. Equal rosters render equal text.
func (r Roster) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Joined (%d):", len(r.Joined))
	writeNames(&b, r.Joined)
	fmt.Fprintf(&b, "\nDeclined (%d):", len(r.Declined))
	writeNames(&b, r.Declined)
	return b.String()
}

func writeNames(b *strings.Builder, names []string) {
	if len(names) == 0 {
		b.WriteString(" nobody yet")
		return
	}
	for _, n := range names {
		b.WriteString("\n- ")
		b.WriteString(n)
	}
}
