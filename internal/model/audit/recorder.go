package audit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/wallet"
)

var counterEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "loopr",
		Subsystem: "audit",
		Name:      "events_total",
	},
	[]string{"operation"},
)

// Recorder writes wallet audit events to the structured log. The log is the
// audit trail; the consumer offset guarantees at-least-once recording.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) HandleAuditEvent(_ context.Context, event wallet.AuditEvent) error {
	counterEvents.WithLabelValues(event.Operation).Inc()
	logger.Info("wallet audit",
		zap.Int64("userID", event.UserID),
		zap.String("operation", event.Operation),
		zap.Float64("amount", event.Amount),
		zap.Float64("balance", event.Balance),
		zap.Time("date", event.Date),
	)
	return nil
}
