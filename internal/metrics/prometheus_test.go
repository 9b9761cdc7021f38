package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "test")
	require.NoError(t, err)

	p.PlanConfirmed("quick")
	p.PlanConfirmed("quick")
	p.AssignmentsCreated(3)
	p.AssignmentDeleted()
	p.PublishFailed("assignment:created")

	assert.Equal(t, float64(2), testutil.ToFloat64(p.plansConfirmed.WithLabelValues("quick")))
	assert.Equal(t, float64(3), testutil.ToFloat64(p.assignmentsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.assignmentsDeleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.publishFailures.WithLabelValues("assignment:created")))
	assert.Zero(t, testutil.ToFloat64(p.assignmentsUpdated))
}

func TestPrometheusRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "test")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "test")
	assert.Error(t, err)
}
