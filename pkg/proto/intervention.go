package proto

import "fmt"

// InterventionType identifies a process-rule correction injected mid-session.
type InterventionType string

// Intervention catalogue, in gating evaluation order.
const (
	InterventionPreventPrematureSolutioning InterventionType = "PREVENT_PREMATURE_SOLUTIONING"
	InterventionEnsureUserFocus             InterventionType = "ENSURE_USER_FOCUS"
	InterventionDemandPrioritization        InterventionType = "DEMAND_PRIORITIZATION_RATIONALE"
	InterventionRequireMeasurableMetrics    InterventionType = "REQUIRE_MEASURABLE_METRICS"
	InterventionHandleSilenceOrConfusion    InterventionType = "HANDLE_SILENCE_OR_CONFUSION"
)

// String returns the string representation of the intervention type.
func (it InterventionType) String() string {
	return string(it)
}

// ValidateInterventionType validates if a string is a known intervention type.
func ValidateInterventionType(s string) (InterventionType, bool) {
	switch InterventionType(s) {
	case InterventionPreventPrematureSolutioning, InterventionEnsureUserFocus,
		InterventionDemandPrioritization, InterventionRequireMeasurableMetrics,
		InterventionHandleSilenceOrConfusion:
		return InterventionType(s), true
	default:
		return "", false
	}
}

// ParseInterventionType parses a string into an InterventionType with validation.
func ParseInterventionType(s string) (InterventionType, error) {
	if it, ok := ValidateInterventionType(s); ok {
		return it, nil
	}
	return "", fmt.Errorf("unknown intervention type: %s", s)
}

// InterventionDirective is a corrective directive produced by the gating
// engine. Immutable once appended to a session's history.
type InterventionDirective struct {
	Type    InterventionType  `json:"type"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}
