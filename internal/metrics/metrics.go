package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "mafia_bot"

// Metrics holds all application metrics
type Metrics struct {
	GamesCreatedTotal       prometheus.Counter
	GamesDeletedTotal       prometheus.Counter
	ResponsesTotal          *prometheus.CounterVec
	RedundantResponsesTotal prometheus.Counter
	DeliveriesTotal         *prometheus.CounterVec
	EventsHandledTotal      *prometheus.CounterVec
	ScheduledPromptsTotal   prometheus.Counter

	logger *zap.Logger
}

// New creates and registers all metrics with the default registry
func New(logger *zap.Logger) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(registerer)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Metrics{
		GamesCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Total number of games created",
		}),
		GamesDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_deleted_total",
			Help:      "Total number of games deleted",
		}),
		ResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Participation changes by resulting status",
		}, []string{"status"}),
		RedundantResponsesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redundant_responses_total",
			Help:      "Responses that repeated the stored choice",
		}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound message attempts by outcome",
		}, []string{"outcome"}),
		EventsHandledTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Inbound events by kind and result",
		}, []string{"kind", "result"}),
		ScheduledPromptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_prompts_total",
			Help:      "Times the administrator was asked whether to play",
		}),
		logger: logger,
	}
}

func (m *Metrics) IncGameCreated() {
	m.safeExecute("IncGameCreated", func() { m.GamesCreatedTotal.Inc() })
}

func (m *Metrics) IncGameDeleted() {
	m.safeExecute("IncGameDeleted", func() { m.GamesDeletedTotal.Inc() })
}

func (m *Metrics) IncResponse(status string) {
	m.safeExecute("IncResponse", func() { m.ResponsesTotal.WithLabelValues(status).Inc() })
}

func (m *Metrics) IncRedundantResponse() {
	m.safeExecute("IncRedundantResponse", func() { m.RedundantResponsesTotal.Inc() })
}

// IncDelivery records one outbound attempt; ok selects the "success" or "failure" label.
func (m *Metrics) IncDelivery(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.safeExecute("IncDelivery", func() { m.DeliveriesTotal.WithLabelValues(outcome).Inc() })
}

func (m *Metrics) IncEvent(kind, result string) {
	m.safeExecute("IncEvent", func() { m.EventsHandledTotal.WithLabelValues(kind, result).Inc() })
}

func (m *Metrics) IncScheduledPrompt() {
	m.safeExecute("IncScheduledPrompt", func() { m.ScheduledPromptsTotal.Inc() })
}

// safeExecute wraps metric operations with panic recovery. A nil *Metrics is a no-op.
func (m *Metrics) safeExecute(operation string, fn func()) {
	if m == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in metrics operation",
				zap.String("operation", operation),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
