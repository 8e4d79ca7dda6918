package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/bot"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// RegistrationQR serves GET /qr/register.png: a QR code of the deep link that
// registers whoever scans it. ?size= picks the edge length in pixels.
func RegistrationQR(botUsername string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if botUsername == "" {
			http.NotFound(w, r)
			return
		}

		size := defaultQRSize
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < minQRSize || n > maxQRSize {
				http.Error(w, "size must be between 128 and 1024", http.StatusBadRequest)
				return
			}
			size = n
		}

		png, err := bot.RegistrationQR(botUsername, size)
		if err != nil {
			log.Error("qr encode failed", zap.Error(err))
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
