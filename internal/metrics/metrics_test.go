package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.RunStarted()
	m.RunCompleted(OutcomeFinished, time.Second)
	m.EventSent("RUN_STARTED")
	m.EventSent("RUN_STARTED")
	m.SessionOp("save", nil)
	m.SessionOp("save", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsCompleted.WithLabelValues(OutcomeFinished)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsSent.WithLabelValues("RUN_STARTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionOps.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionOps.WithLabelValues("save", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunStarted()
		m.RunCompleted(OutcomeError, time.Millisecond)
		m.EventSent("RUN_ERROR")
		m.SessionOp("get", nil)
	})
}
