package proto

import (
	"fmt"
	"strings"
)

// Phase represents a stage of the interview session state machine.
type Phase string

// Interview phases in lifecycle order.
const (
	PhaseConfiguring      Phase = "CONFIGURING"
	PhaseScoping          Phase = "SCOPING"
	PhaseAnalysis         Phase = "ANALYSIS"
	PhaseSolutioning      Phase = "SOLUTIONING"
	PhaseMetrics          Phase = "METRICS"
	PhaseChallenging      Phase = "CHALLENGING"
	PhaseReportGeneration Phase = "REPORT_GENERATION"
	PhaseEnd              Phase = "END"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// ValidatePhase validates if a string is a known interview phase.
func ValidatePhase(phase string) (Phase, bool) {
	switch Phase(phase) {
	case PhaseConfiguring, PhaseScoping, PhaseAnalysis, PhaseSolutioning,
		PhaseMetrics, PhaseChallenging, PhaseReportGeneration, PhaseEnd:
		return Phase(phase), true
	default:
		return "", false
	}
}

// ParsePhase parses a string into a Phase with validation.
func ParsePhase(s string) (Phase, error) {
	if phase, ok := ValidatePhase(strings.ToUpper(s)); ok {
		return phase, nil
	}
	return "", fmt.Errorf("unknown interview phase: %s", s)
}

// Trigger identifies what caused a state transition.
type Trigger string

const (
	TriggerUserAction  Trigger = "user_action"
	TriggerSemantic    Trigger = "semantic"
	TriggerAgentAction Trigger = "agent_action"
	TriggerTimeout     Trigger = "timeout"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}

// ValidateTrigger validates if a string is a known transition trigger.
func ValidateTrigger(trigger string) (Trigger, bool) {
	switch Trigger(trigger) {
	case TriggerUserAction, TriggerSemantic, TriggerAgentAction, TriggerTimeout:
		return Trigger(trigger), true
	default:
		return "", false
	}
}

// StateTransitionEvent describes a committed phase transition.
// This is the contractual event shape consumed by the telemetry sink.
type StateTransitionEvent struct {
	FromPhase Phase          `json:"from_state"`
	ToPhase   Phase          `json:"to_state"`
	Trigger   Trigger        `json:"trigger"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
