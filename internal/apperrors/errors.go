package apperrors

import (
	"errors"
	"fmt"
)

// Resource errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrGameNotFound  = &CustomError{Err: ErrNotFound, Message: "game not found"}
	ErrGroupNotFound = &CustomError{Err: ErrNotFound, Message: "group not found"}
	ErrUserNotFound  = &CustomError{Err: ErrNotFound, Message: "user not found"}
)

// Request errors
var (
	ErrUserNotRegistered = errors.New("user is not registered")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrInvalidTimeSlot   = errors.New("invalid time slot")
	ErrInvalidStatus     = errors.New("invalid participation status")
	ErrForbidden         = errors.New("permission denied")
)

// ErrDeliveryFailure wraps a transport error for one recipient.
var ErrDeliveryFailure = errors.New("delivery failed")

// ErrRedundantResponse is soft: the user repeated the choice already stored.
var ErrRedundantResponse = errors.New("response already recorded")

// CustomError carries a specific message on top of a sentinel.
type CustomError struct {
	Err     error
	Message string
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Malformed builds an ErrMalformedPayload error naming the offending payload.
func Malformed(payload string) error {
	return &CustomError{Err: ErrMalformedPayload, Message: fmt.Sprintf("malformed payload %q", payload)}
}

// Delivery wraps a transport error so errors.Is(err, ErrDeliveryFailure) holds
// and the cause is still reachable.
func Delivery(recipient int64, cause error) error {
	return &deliveryError{recipient: recipient, cause: cause}
}

type deliveryError struct {
	recipient int64
	cause     error
}

func (e *deliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.recipient, e.cause)
}

func (e *deliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailure, e.cause}
}

// Is returns whether err matches target or any of errList.
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// UserMessage maps an error to the short notice shown in the chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRedundantResponse):
		return "You have already answered that way."
	case errors.Is(err, ErrUserNotRegistered):
		return "You are not registered yet. Send /start to the bot to join."
	case errors.Is(err, ErrGameNotFound):
		return "This game no longer exists."
	case errors.Is(err, ErrGroupNotFound):
		return "This group is no longer served by the bot."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrForbidden):
		return "Only the administrator can do that."
	case errors.Is(err, ErrInvalidTimeSlot):
		return "That time slot is not valid."
	case errors.Is(err, ErrMalformedPayload):
		return "Could not process that button."
	case errors.Is(err, ErrDeliveryFailure):
		return "The message could not be delivered. Check the bot's rights in that chat."
	default:
		return "Something went wrong, please try again."
	}
}
