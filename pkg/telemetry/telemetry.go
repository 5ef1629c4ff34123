// Package telemetry records orchestrator events for monitoring. The Sink
// interface keeps the orchestrator decoupled from the metrics backend.
package telemetry

import (
	"interviewcoach/pkg/proto"
)

// Sink receives orchestrator lifecycle events.
type Sink interface {
	// RecordTransition is called once per applied phase transition.
	RecordTransition(event proto.StateTransitionEvent)

	// RecordAssessment is called when complexity is assessed or reassessed.
	RecordAssessment(sessionID, tier, strategy string)

	// RecordIntervention is called when a gating rule fires.
	RecordIntervention(sessionID string, kind proto.InterventionType)

	// RecordBreakerOpen is called when a collaborator call is rejected by an
	// open circuit.
	RecordBreakerOpen(agent, operation string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordTransition(proto.StateTransitionEvent)       {}
func (NopSink) RecordAssessment(string, string, string)           {}
func (NopSink) RecordIntervention(string, proto.InterventionType) {}
func (NopSink) RecordBreakerOpen(string, string)                  {}
