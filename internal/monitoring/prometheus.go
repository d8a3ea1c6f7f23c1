package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sheikh-saqib/token-ledger/internal/logx"
)

// RejectedReason labels why an operation was refused.
type RejectedReason string

var (
	RejectInvalidRecipient      RejectedReason = "invalid_recipient"
	RejectInvalidSender         RejectedReason = "invalid_sender"
	RejectInvalidSpender        RejectedReason = "invalid_spender"
	RejectInvalidOwner          RejectedReason = "invalid_owner"
	RejectInsufficientBalance   RejectedReason = "insufficient_balance"
	RejectInsufficientAllowance RejectedReason = "insufficient_allowance"
	RejectArithmeticOverflow    RejectedReason = "arithmetic_overflow"
	RejectStoreFailure          RejectedReason = "store_failure"
)

type ledgerPromMetrics struct {
	appliedOps      *prometheus.CounterVec
	rejectedOps     *prometheus.CounterVec
	publishFailures prometheus.Counter
	holders         prometheus.Gauge
}

func newLedgerPromMetrics(reg prometheus.Registerer) *ledgerPromMetrics {
	factory := promauto.With(reg)
	return &ledgerPromMetrics{
		appliedOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_ledger_applied_ops_total",
				Help: "The total number of successfully applied ledger mutations",
			},
			[]string{"op"},
		),
		rejectedOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_ledger_rejected_ops_total",
				Help: "The total number of ledger mutations rejected by a precondition or store failure",
			},
			[]string{"op", "reason"},
		),
		publishFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "token_ledger_event_publish_failures_total",
				Help: "The total number of transfer/approval events that could not be published",
			},
		),
		holders: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "token_ledger_holders",
				Help: "Number of addresses holding a non-zero balance at the last audit",
			},
		),
	}
}

var (
	metricsMu     sync.RWMutex
	ledgerMetrics *ledgerPromMetrics
)

// InitMetrics registers the ledger collectors with the default registry.
// Recording before InitMetrics is a no-op.
func InitMetrics() {
	InitMetricsWith(prometheus.DefaultRegisterer)
}

// InitMetricsWith registers the ledger collectors with reg.
func InitMetricsWith(reg prometheus.Registerer) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	ledgerMetrics = newLedgerPromMetrics(reg)
}

// RegisterMetrics serves the default registry on /metrics.
func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func current() *ledgerPromMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return ledgerMetrics
}

func RecordApplied(op string) {
	if m := current(); m != nil {
		m.appliedOps.With(prometheus.Labels{"op": op}).Inc()
	}
}

func RecordRejected(op string, reason RejectedReason) {
	if m := current(); m != nil {
		m.rejectedOps.With(prometheus.Labels{"op": op, "reason": string(reason)}).Inc()
	}
}

func RecordPublishFailure() {
	if m := current(); m != nil {
		m.publishFailures.Inc()
	}
}

func SetHolders(n int) {
	if m := current(); m != nil {
		m.holders.Set(float64(n))
	}
}
