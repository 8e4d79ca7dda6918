package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mafianight/bot/internal/models"
)

func TestBus_FansOutInOrder(t *testing.T) {
	var b Bus
	var got []string
	b.OnResponse(func(ev Response) { got = append(got, "a:"+ev.UserName) })
	b.OnResponse(func(ev Response) { got = append(got, "b:"+string(ev.Status)) })

	b.PublishResponse(Response{UserName: "Ann", Status: models.StatusJoined})

	assert.Equal(t, []string{"a:Ann", "b:joined"}, got)
}

func TestBus_NilIsSafe(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.PublishResponse(Response{}) })
}
