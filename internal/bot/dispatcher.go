package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/keylock"
	"github.com/mafianight/bot/internal/metrics"
	"github.com/mafianight/bot/internal/notify"
	"github.com/mafianight/bot/internal/services"
)

type Deps struct {
	Transport   Transport
	Notifier    *notify.Dispatcher
	Games       *services.Games
	Responses   *services.Responses
	Registry    *services.Registry
	AdminID     int64
	TimeSlots   []string
	BotUsername string // for the registration deep link; empty disables /qr
	Metrics     *metrics.Metrics
	Log         *zap.Logger
}

// Dispatcher routes decoded events to their handlers. Each event runs in its
// own goroutine; Shutdown stops intake and waits for the running ones.
type Dispatcher struct {
	Deps

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// invitations serializes roster refreshes of one game's message
	invitations keylock.Map[uint]
}

func NewDispatcher(d Deps) *Dispatcher {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Dispatcher{Deps: d}
}

// Dispatch handles ev in the background. It returns false once Shutdown has
// been called. The handler keeps running if ctx is cancelled afterwards.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		_ = d.Handle(ctx, ev)
	}()
	return true
}

// Shutdown refuses new events and blocks until in-flight handlers return.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

// Handle processes one event synchronously. Failures are answered in the
// chat and logged; the returned error is informational.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (err error) {
	kind := ev.kind()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.Log.Error("handler panicked", zap.String("kind", kind), zap.Any("panic", r), zap.Stack("stack"))
		}
		d.Metrics.IncEvent(kind, resultLabel(err))
	}()

	switch e := ev.(type) {
	case CommandEvent:
		return d.onCommand(ctx, e)
	case ButtonPress:
		return d.onButton(ctx, e)
	case MembershipChange:
		return d.onMembership(ctx, e)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrRedundantResponse):
		return "redundant"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrMalformedPayload):
		return "malformed"
	case apperrors.Is(err, apperrors.ErrNotFound, apperrors.ErrUserNotRegistered, apperrors.ErrInvalidTimeSlot):
		return "rejected"
	default:
		return "error"
	}
}

func (d *Dispatcher) isAdmin(userID int64) bool {
	return userID == d.AdminID
}

// logFailure logs at a level matching how surprising err is.
func (d *Dispatcher) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	switch resultLabel(err) {
	case "error":
		d.Log.Error(msg, fields...)
	case "redundant":
		d.Log.Debug(msg, fields...)
	default:
		d.Log.Info(msg, fields...)
	}
}

// reply sends a plain notice to chatID; delivery problems are already logged
// by the notifier.
func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	d.Notifier.SendOne(ctx, chatID, notify.Message{Text: text})
}
