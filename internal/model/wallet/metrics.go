package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

var counterOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "loopr",
		Subsystem: "wallet",
		Name:      "operations_total",
	},
	[]string{"operation", "outcome"},
)

func observeOperation(operation, outcome string) {
	counterOperations.WithLabelValues(operation, outcome).Inc()
}
