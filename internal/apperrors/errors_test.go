package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundFamily(t *testing.T) {
	for _, err := range []error{ErrGameNotFound, ErrGroupNotFound, ErrUserNotFound} {
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, fmt.Errorf("lookup: %w", err), ErrNotFound)
	}
	assert.False(t, errors.Is(ErrGameNotFound, ErrGroupNotFound))
}

func TestDelivery_KeepsCause(t *testing.T) {
	cause := errors.New("Forbidden: bot was blocked by the user")
	err := Delivery(42, cause)

	assert.ErrorIs(t, err, ErrDeliveryFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "42")
}

func TestMalformed(t *testing.T) {
	err := Malformed("join_yes_abc")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "join_yes_abc")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "This game no longer exists.", UserMessage(fmt.Errorf("respond: %w", ErrGameNotFound)))
	assert.Equal(t, "You have already answered that way.", UserMessage(ErrRedundantResponse))
	assert.Contains(t, UserMessage(ErrUserNotRegistered), "/start")
	assert.Equal(t, "Could not process that button.", UserMessage(Malformed("x")))
	assert.Contains(t, UserMessage(Delivery(-100, errors.New("Forbidden"))), "could not be delivered")
	assert.Equal(t, "Something went wrong, please try again.", UserMessage(errors.New("boom")))
}

func TestIs(t *testing.T) {
	assert.True(t, Is(ErrGameNotFound, ErrForbidden, ErrNotFound))
	assert.False(t, Is(ErrForbidden, ErrNotFound))
}
