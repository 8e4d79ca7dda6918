package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/handlers"
)

type Deps struct {
	DB            handlers.Pinger
	Intake        handlers.WebhookIntake // nil when polling
	WebhookSecret string
	BotUsername   string
	Gatherer      prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	Log           *zap.Logger
}

func Router(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health(d.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/qr/register.png", handlers.RegistrationQR(d.BotUsername, d.Log))
	if d.Intake != nil {
		r.Post("/tg/webhook", handlers.TelegramWebhook(d.Intake, d.WebhookSecret, d.Log))
	}
	return r
}

// requestLogger logs one line per request at debug level; the webhook is
// hit for every update, so info would drown everything else.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
