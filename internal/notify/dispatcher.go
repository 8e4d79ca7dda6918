// Package notify delivers messages to one chat or fans them out to many,
// recording per-recipient failures instead of aborting the batch.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/apperrors"
	"github.com/mafianight/bot/internal/metrics"
)

// Action is one labeled button; Data is the callback payload.
type Action struct {
	Label string
	Data  string
}

type Message struct {
	Text    string
	Actions [][]Action
}

// Sender is the outbound half of the chat transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, msg Message) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, msg Message) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	PinMessage(ctx context.Context, chatID int64, messageID int) error
}

// Result is the outcome of one delivery attempt.
type Result struct {
	RecipientID int64
	MessageID   int
	Err         error
}

func (r Result) OK() bool { return r.Err == nil }

// Handle points at a message already on screen, with the text it shows now.
type Handle struct {
	ChatID    int64
	MessageID int
	Text      string
}

type Dispatcher struct {
	sender  Sender
	delay   time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewDispatcher builds a dispatcher. delay is the pause between two sends of
// one broadcast; zero disables pacing.
func NewDispatcher(sender Sender, delay time.Duration, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, delay: delay, metrics: m, log: log}
}

// SendOne attempts one delivery. A transport failure is reported in the
// Result, never returned.
func (d *Dispatcher) SendOne(ctx context.Context, recipient int64, msg Message) Result {
	id, err := d.sender.SendMessage(ctx, recipient, msg)
	if err != nil {
		d.metrics.IncDelivery(false)
		d.log.Warn("delivery failed", zap.Int64("recipient_id", recipient), zap.Error(err))
		return Result{RecipientID: recipient, Err: apperrors.Delivery(recipient, err)}
	}
	d.metrics.IncDelivery(true)
	return Result{RecipientID: recipient, MessageID: id}
}

// Broadcast sends msgFn(recipient) to every recipient in order and returns one
// Result per recipient. Individual failures do not stop the batch; a
// cancelled ctx marks the remaining recipients failed.
func (d *Dispatcher) Broadcast(ctx context.Context, recipients []int64, msgFn func(recipient int64) Message) []Result {
	results := make([]Result, 0, len(recipients))
	for i, r := range recipients {
		if i > 0 && d.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			results = append(results, Result{RecipientID: r, Err: apperrors.Delivery(r, err)})
			continue
		}
		results = append(results, d.SendOne(ctx, r, msgFn(r)))
	}

	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}
	d.log.Info("broadcast finished",
		zap.Int("recipients", len(recipients)),
		zap.Int("failed", failed),
	)
	return results
}

// Refresh edits a message in place. Identical text is not re-sent: the edit
// is skipped and reported as success.
func (d *Dispatcher) Refresh(ctx context.Context, h Handle, msg Message) (edited bool, err error) {
	if msg.Text == h.Text {
		return false, nil
	}
	if err := d.sender.EditMessage(ctx, h.ChatID, h.MessageID, msg); err != nil {
		d.metrics.IncDelivery(false)
		d.log.Warn("refresh failed",
			zap.Int64("recipient_id", h.ChatID),
			zap.Int("message_id", h.MessageID),
			zap.Error(err),
		)
		return false, apperrors.Delivery(h.ChatID, err)
	}
	d.metrics.IncDelivery(true)
	return true, nil
}

// Pin pins a delivered message in its chat.
func (d *Dispatcher) Pin(ctx context.Context, res Result) error {
	if !res.OK() {
		return res.Err
	}
	if err := d.sender.PinMessage(ctx, res.RecipientID, res.MessageID); err != nil {
		d.log.Warn("pin failed", zap.Int64("recipient_id", res.RecipientID), zap.Error(err))
		return apperrors.Delivery(res.RecipientID, err)
	}
	return nil
}

// Remove deletes a message; failures are reported like any other delivery.
func (d *Dispatcher) Remove(ctx context.Context, chatID int64, messageID int) error {
	if err := d.sender.DeleteMessage(ctx, chatID, messageID); err != nil {
		d.log.Warn("delete failed", zap.Int64("recipient_id", chatID), zap.Error(err))
		return apperrors.Delivery(chatID, err)
	}
	return nil
}
