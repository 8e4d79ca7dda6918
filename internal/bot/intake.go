package bot

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Intake feeds updates into the dispatcher, by long polling or from the
// webhook endpoint.
type Intake struct {
	client     *Client
	dispatcher *Dispatcher
	log        *zap.Logger
}

func NewIntake(c *Client, d *Dispatcher, log *zap.Logger) *Intake {
	return &Intake{client: c, dispatcher: d, log: log}
}

// Poll long-polls until ctx is cancelled.
func (in *Intake) Poll(ctx context.Context, timeout int) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}
	updates := in.client.api.GetUpdatesChan(u)
	in.log.Info("polling for updates", zap.Int("timeout", timeout))

	for {
		select {
		case <-ctx.Done():
			in.client.api.StopReceivingUpdates()
			in.log.Info("polling stopped")
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			in.accept(ctx, up)
		}
	}
}

// HandleWebhook decodes one posted update and dispatches it.
func (in *Intake) HandleWebhook(r *http.Request) error {
	up, err := in.client.ParseWebhook(r)
	if err != nil {
		return err
	}
	in.accept(r.Context(), *up)
	return nil
}

func (in *Intake) accept(ctx context.Context, up tgbotapi.Update) {
	ev, ok := Decode(up)
	if !ok {
		return
	}
	if !in.dispatcher.Dispatch(ctx, ev) {
		in.log.Debug("update dropped during shutdown", zap.Int("update_id", up.UpdateID))
	}
}
