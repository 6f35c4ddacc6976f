package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveOp("set", "ok")
		m.SetQueueDepth("grid", 3)
		m.ObserveQueueApply("grid", nil)
		m.ObserveSearch(time.Millisecond)
		m.ObserveFlush(errors.New("boom"))
	})
}

func TestObserveOp(t *testing.T) {
	t.Parallel()
	m := New(nil)

	m.ObserveOp("set", "ok")
	m.ObserveOp("set", "ok")
	m.ObserveOp("set", "rejected")
	m.ObserveRejection()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ops.WithLabelValues("set", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("set", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationRejections))
}

func TestQueueAndFlushCollectors(t *testing.T) {
	t.Parallel()
	m := New(nil)

	m.SetQueueDepth("grid", 4)
	m.ObserveQueueApply("grid", nil)
	m.ObserveQueueApply("grid", errors.New("bad"))
	m.ObserveFlush(nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("grid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueApplied.WithLabelValues("grid", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueApplied.WithLabelValues("grid", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flushes.WithLabelValues("ok")))
}

func TestNewRegistersWithProvidedRegistry(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveOp("get", "ok")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["flaggrid_ops_total"])
}
