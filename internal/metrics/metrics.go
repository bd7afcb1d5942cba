// Package metrics holds the domain Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"docgate/internal/model"
)

// Pipeline outcomes recorded by the translation service.
const (
	OutcomeGenerated   = "generated"
	OutcomeInvalid     = "invalid_input"
	OutcomeSecret      = "secret_rejected"
	OutcomeQuarantined = "quarantined"
	OutcomeCircuitOpen = "circuit_open"
	OutcomePaused      = "paused"
	OutcomeError       = "error"
)

type Metrics struct {
	circuitState     *prometheus.GaugeVec
	secretsDetected  *prometheus.CounterVec
	pipelineOutcomes *prometheus.CounterVec
	auditEvents      *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docgate_circuit_state",
				Help: "Circuit breaker phase per dependency (0 closed, 1 half-open, 2 open).",
			},
			[]string{"dependency"},
		),
		secretsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgate_secrets_detected_total",
				Help: "Secrets found by the scanner, by stage and severity.",
			},
			[]string{"stage", "severity"},
		),
		pipelineOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgate_pipeline_outcomes_total",
				Help: "Generate requests by final outcome.",
			},
			[]string{"outcome"},
		),
		auditEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgate_audit_events_total",
				Help: "Security events recorded, by type and severity.",
			},
			[]string{"event_type", "severity"},
		),
	}
	for _, c := range []prometheus.Collector{m.circuitState, m.secretsDetected, m.pipelineOutcomes, m.auditEvents} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func phaseValue(p model.CircuitPhase) float64 {
	switch p {
	case model.CircuitOpen:
		return 2
	case model.CircuitHalfOpen:
		return 1
	default:
		return 0
	}
}

// CircuitChanged matches breaker.StateChangeFunc.
func (m *Metrics) CircuitChanged(name string, _, to model.CircuitPhase) {
	m.circuitState.WithLabelValues(name).Set(phaseValue(to))
}

// SecretsFound counts the findings of one scan at stage ("input", "output", "publish").
func (m *Metrics) SecretsFound(stage string, res model.ScanResult) {
	for _, f := range res.Findings {
		m.secretsDetected.WithLabelValues(stage, string(f.Severity)).Inc()
	}
}

func (m *Metrics) PipelineOutcome(outcome string) {
	m.pipelineOutcomes.WithLabelValues(outcome).Inc()
}

// AuditEvent is an audit.Logger observer.
func (m *Metrics) AuditEvent(ev model.SecurityEvent) {
	m.auditEvents.WithLabelValues(string(ev.EventType), string(ev.Severity)).Inc()
}
