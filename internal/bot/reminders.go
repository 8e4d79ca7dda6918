package bot

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/metrics"
	"github.com/mafianight/bot/internal/notify"
)

// Scheduler periodically asks the administrator whether to play.
type Scheduler struct {
	cron     *cron.Cron
	notifier *notify.Dispatcher
	adminID  int64
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewScheduler registers AskAdmin under spec, a standard five-field cron
// expression or a descriptor such as "@every 24h".
func NewScheduler(spec string, n *notify.Dispatcher, adminID int64, m *metrics.Metrics, log *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{log: log.Sugar()}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		notifier: n,
		adminID:  adminID,
		metrics:  m,
		log:      log,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.AskAdmin(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// AskAdmin sends the "do we play today?" prompt.
func (s *Scheduler) AskAdmin(ctx context.Context) notify.Result {
	res := s.notifier.SendOne(ctx, s.adminID, AdminPrompt())
	s.metrics.IncScheduledPrompt()
	if res.OK() {
		s.log.Info("asked admin about today's game")
	}
	return res
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for a running AskAdmin to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
