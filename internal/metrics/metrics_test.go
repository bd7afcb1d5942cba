package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/model"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.CircuitChanged("llm", model.CircuitClosed, model.CircuitOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.circuitState.WithLabelValues("llm")))
	m.CircuitChanged("llm", model.CircuitOpen, model.CircuitHalfOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitState.WithLabelValues("llm")))

	m.SecretsFound("input", model.ScanResult{Findings: []model.ScanFinding{
		{Severity: model.SeverityCritical}, {Severity: model.SeverityCritical}, {Severity: model.SeverityHigh},
	}})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.secretsDetected.WithLabelValues("input", "CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.secretsDetected.WithLabelValues("input", "HIGH")))

	m.PipelineOutcome(OutcomeGenerated)
	m.PipelineOutcome(OutcomeGenerated)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pipelineOutcomes.WithLabelValues(OutcomeGenerated)))

	m.AuditEvent(model.SecurityEvent{EventType: model.EventLeakDetected, Severity: model.EventSeverityCritical})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditEvents.WithLabelValues("LEAK_DETECTED", "CRITICAL")))

	_, err = New(reg)
	assert.Error(t, err, "second registration on the same registry fails")
}
