package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingBeforeInitIsNoop(t *testing.T) {
	metricsMu.Lock()
	ledgerMetrics = nil
	metricsMu.Unlock()

	assert.NotPanics(t, func() {
		RecordApplied("transfer")
		RecordRejected("transfer", RejectInsufficientBalance)
		RecordPublishFailure()
		SetHolders(3)
	})
}

func TestCountersTrackOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	InitMetricsWith(reg)
	m := current()
	require.NotNil(t, m)

	RecordApplied("transfer")
	RecordApplied("transfer")
	RecordRejected("transfer_from", RejectInsufficientAllowance)
	SetHolders(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.appliedOps.WithLabelValues("transfer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedOps.WithLabelValues("transfer_from", string(RejectInsufficientAllowance))))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.holders))
}
