// Package gating evaluates candidate behavior against an ordered catalogue of
// process rules and emits at most one corrective intervention per evaluation.
package gating

import (
	"strings"

	"interviewcoach/pkg/proto"
)

// Competency score keys referenced by the rule catalogue.
const (
	CompetencyProblemDefinition = "Problem Definition & Structuring"
	CompetencyPrioritization    = "Prioritization & Decision-Making"
)

// Rules holds the vocabulary lists and thresholds the catalogue evaluates
// against. Supplied at construction so tests can substitute fixtures.
type Rules struct {
	SolutionVocabulary       []string `yaml:"solution_vocabulary"`
	UserFocusVocabulary      []string `yaml:"user_focus_vocabulary"`
	PrioritizationVocabulary []string `yaml:"prioritization_vocabulary"`
	MeasurableVocabulary     []string `yaml:"measurable_vocabulary"`
	ConfusionVocabulary      []string `yaml:"confusion_vocabulary"`
	ScoreThreshold           float64  `yaml:"score_threshold"` // rules fire when the keyed score is below this
	MinResponseWords         int      `yaml:"min_response_words"`
}

// DefaultRules returns the standard rule vocabulary and thresholds.
func DefaultRules() Rules {
	return Rules{
		SolutionVocabulary: []string{
			"solution", "i would build", "feature", "implement", "we should add",
			"my idea is", "let's build",
		},
		UserFocusVocabulary: []string{
			"user", "customer", "persona", "segment", "audience",
		},
		PrioritizationVocabulary: []string{
			"prioritize", "priority", "impact", "effort", "first", "most important",
			"rank",
		},
		MeasurableVocabulary: []string{
			"%", "percent", "rate", "number of", "count", "target", "per week",
			"per day", "baseline", "conversion",
		},
		ConfusionVocabulary: []string{
			"i don't know", "not sure", "confused", "no idea", "what do you mean",
		},
		ScoreThreshold:   3,
		MinResponseWords: 5,
	}
}

// Input is a read-only snapshot of the session facts a rule evaluation sees.
type Input struct {
	Phase        proto.Phase
	Scores       map[string]float64
	LastResponse string
}

// Engine evaluates the fixed, ordered rule catalogue.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine with the given rule configuration.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Evaluate walks the catalogue in order and returns the first matching
// intervention, or nil when no rule fires. At most one intervention is ever
// produced per call; cumulative signals across calls are not tracked.
func (e *Engine) Evaluate(in Input) *proto.InterventionDirective {
	lower := strings.ToLower(in.LastResponse)

	if directive := e.preventPrematureSolutioning(in, lower); directive != nil {
		return directive
	}
	if directive := e.ensureUserFocus(in, lower); directive != nil {
		return directive
	}
	if directive := e.demandPrioritizationRationale(in, lower); directive != nil {
		return directive
	}
	if directive := e.requireMeasurableMetrics(in, lower); directive != nil {
		return directive
	}
	return e.handleSilenceOrConfusion(in, lower)
}

// preventPrematureSolutioning fires when the candidate jumps to solutions
// during SCOPING before the problem is structured.
func (e *Engine) preventPrematureSolutioning(in Input, lower string) *proto.InterventionDirective {
	if in.Phase != proto.PhaseScoping {
		return nil
	}
	if !containsAny(lower, e.rules.SolutionVocabulary) {
		return nil
	}
	score, scored := in.Scores[CompetencyProblemDefinition]
	if !scored || score >= e.rules.ScoreThreshold {
		return nil
	}
	return &proto.InterventionDirective{
		Type:    proto.InterventionPreventPrematureSolutioning,
		Message: "Hold off on solutions for now. First, walk me through how you'd define and structure the problem.",
		Context: map[string]string{
			"phase":      in.Phase.String(),
			"competency": CompetencyProblemDefinition,
		},
	}
}

func (e *Engine) ensureUserFocus(in Input, lower string) *proto.InterventionDirective {
	if in.Phase != proto.PhaseAnalysis {
		return nil
	}
	if containsAny(lower, e.rules.UserFocusVocabulary) {
		return nil
	}
	return &proto.InterventionDirective{
		Type:    proto.InterventionEnsureUserFocus,
		Message: "Who is this for? Ground your analysis in specific users or customer segments.",
		Context: map[string]string{"phase": in.Phase.String()},
	}
}

func (e *Engine) demandPrioritizationRationale(in Input, lower string) *proto.InterventionDirective {
	if in.Phase != proto.PhaseSolutioning {
		return nil
	}
	if containsAny(lower, e.rules.PrioritizationVocabulary) {
		return nil
	}
	score, scored := in.Scores[CompetencyPrioritization]
	if scored && score >= e.rules.ScoreThreshold {
		return nil
	}
	return &proto.InterventionDirective{
		Type:    proto.InterventionDemandPrioritization,
		Message: "You've listed options. Which would you do first, and why? Walk me through the trade-offs.",
		Context: map[string]string{
			"phase":      in.Phase.String(),
			"competency": CompetencyPrioritization,
		},
	}
}

func (e *Engine) requireMeasurableMetrics(in Input, lower string) *proto.InterventionDirective {
	if in.Phase != proto.PhaseMetrics {
		return nil
	}
	if containsAny(lower, e.rules.MeasurableVocabulary) {
		return nil
	}
	return &proto.InterventionDirective{
		Type:    proto.InterventionRequireMeasurableMetrics,
		Message: "Those goals need numbers. How exactly would you measure success, and what target would you set?",
		Context: map[string]string{"phase": in.Phase.String()},
	}
}

func (e *Engine) handleSilenceOrConfusion(in Input, lower string) *proto.InterventionDirective {
	words := len(strings.Fields(lower))
	confused := containsAny(lower, e.rules.ConfusionVocabulary)
	if words >= e.rules.MinResponseWords && !confused {
		return nil
	}
	return &proto.InterventionDirective{
		Type:    proto.InterventionHandleSilenceOrConfusion,
		Message: "Take a moment. Would it help to restate the question or break it into smaller parts?",
		Context: map[string]string{"phase": in.Phase.String()},
	}
}

func containsAny(lower string, vocabulary []string) bool {
	for _, term := range vocabulary {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
