package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("nil metrics are a no-op", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.IncOperation("add_patient", "allow_raw")
			m.IncDenied("doctor", "delete_patient")
			m.ObserveHandle("list_patients", time.Millisecond)
		})
	})

	t.Run("counters are labelled", func(t *testing.T) {
		m := New(prometheus.NewRegistry())
		m.IncDenied("receptionist", "delete_patient")
		m.IncDenied("receptionist", "delete_patient")
		m.IncLogin("failure")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.Denials.WithLabelValues("receptionist", "delete_patient")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("failure")))
	})
}
