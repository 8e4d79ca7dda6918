package handlers

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// WebhookIntake accepts one update posted by Telegram.
type WebhookIntake interface {
	HandleWebhook(r *http.Request) error
}

// secretHeader is set by Telegram when the webhook was registered with a
// secret token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook serves POST /tg/webhook. The secret is taken from the
// ?secret= query or the secret token header; an empty configured secret
// disables the check.
func TelegramWebhook(in WebhookIntake, secret string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !secretMatches(r, secret) {
			log.Warn("webhook secret mismatch", zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		defer r.Body.Close()

		if err := in.HandleWebhook(r); err != nil {
			log.Warn("webhook update rejected", zap.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		// Telegram only needs a 2xx; handling continues in the background.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func secretMatches(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	got := r.URL.Query().Get("secret")
	if got == "" {
		got = r.Header.Get(secretHeader)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}
