package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"interviewcoach/pkg/proto"
)

// PrometheusSink implements Sink using Prometheus counters. The registerer
// is injected so tests and embedders control registration scope.
type PrometheusSink struct {
	transitionsTotal   *prometheus.CounterVec
	assessmentsTotal   *prometheus.CounterVec
	interventionsTotal *prometheus.CounterVec
	breakerOpensTotal  *prometheus.CounterVec
}

// NewPrometheusSink creates a sink registered against the given registerer.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_phase_transitions_total",
				Help: "Total phase transitions by source phase, target phase, and trigger",
			},
			[]string{"from_phase", "to_phase", "trigger"},
		),
		assessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_complexity_assessments_total",
				Help: "Total complexity assessments by tier and selected reasoning strategy",
			},
			[]string{"tier", "strategy"},
		),
		interventionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_interventions_total",
				Help: "Total gating interventions by type",
			},
			[]string{"type"},
		),
		breakerOpensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_breaker_rejections_total",
				Help: "Total collaborator calls rejected by an open circuit",
			},
			[]string{"agent", "operation"},
		),
	}
}

func (p *PrometheusSink) RecordTransition(event proto.StateTransitionEvent) {
	p.transitionsTotal.WithLabelValues(
		event.FromPhase.String(),
		event.ToPhase.String(),
		string(event.Trigger),
	).Inc()
}

func (p *PrometheusSink) RecordAssessment(_, tier, strategy string) {
	p.assessmentsTotal.WithLabelValues(tier, strategy).Inc()
}

func (p *PrometheusSink) RecordIntervention(_ string, kind proto.InterventionType) {
	p.interventionsTotal.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusSink) RecordBreakerOpen(agent, operation string) {
	p.breakerOpensTotal.WithLabelValues(agent, operation).Inc()
}
