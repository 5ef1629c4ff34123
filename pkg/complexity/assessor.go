// Package complexity scores a session's difficulty tier from interview
// parameters and, after responses arrive, from response text. Tiers drive
// reasoning-strategy selection for the interviewer collaborator.
package complexity

import (
	"strings"
)

// Tier classifies assessed session difficulty.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Strategy is the reasoning-depth directive forwarded to the interviewer.
type Strategy string

const (
	StrategyLean           Strategy = "LEAN"
	StrategyChainOfThought Strategy = "CHAIN_OF_THOUGHT"
	StrategyStepBack       Strategy = "STEP_BACK"
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Weights holds the scoring tables for initial assessment. Supplied at
// construction so tests can substitute fixtures.
type Weights struct {
	TypeWeights  map[string]float64 `yaml:"type_weights"`
	LevelWeights map[string]float64 `yaml:"level_weights"`
	LowMax       float64            `yaml:"low_max"`    // score <= LowMax    -> LOW
	MediumMax    float64            `yaml:"medium_max"` // score <= MediumMax -> MEDIUM
}

// DefaultWeights returns the standard scoring tables.
func DefaultWeights() Weights {
	return Weights{
		TypeWeights: map[string]float64{
			"behavioral":              0.8,
			"product sense":           1.0,
			"analytical":              1.1,
			"technical system design": 1.2,
		},
		LevelWeights: map[string]float64{
			"L3": 0.9,
			"L4": 1.0,
			"L5": 1.2,
			"L6": 1.4,
			"L7": 1.6,
		},
		LowMax:    0.9,
		MediumMax: 1.2,
	}
}

// systemsVocabulary are terms whose presence marks a response as reasoning at
// the systems level.
var systemsVocabulary = []string{
	"architecture", "scalability", "scalable", "trade-off", "tradeoff",
	"latency", "throughput", "distributed", "consistency", "partition",
	"replication", "sharding", "concurrency", "bottleneck", "fault tolerance",
}

// Assessor scores sessions against the configured weight tables.
type Assessor struct {
	weights Weights
	vocab   []string
}

// NewAssessor creates an assessor with the given weights and the standard
// systems vocabulary.
func NewAssessor(weights Weights) *Assessor {
	return NewAssessorWithVocabulary(weights, systemsVocabulary)
}

// NewAssessorWithVocabulary creates an assessor with a custom systems
// vocabulary for response-based reassessment.
func NewAssessorWithVocabulary(weights Weights, vocab []string) *Assessor {
	return &Assessor{
		weights: weights,
		vocab:   append([]string(nil), vocab...),
	}
}

// AssessInitial computes the tier at session start from interview parameters.
// Unknown types or levels fall back to neutral weight 1.0.
func (a *Assessor) AssessInitial(interviewType, level string) Tier {
	typeWeight := 1.0
	if w, ok := a.weights.TypeWeights[strings.ToLower(interviewType)]; ok {
		typeWeight = w
	}
	levelWeight := 1.0
	if w, ok := a.weights.LevelWeights[strings.ToUpper(level)]; ok {
		levelWeight = w
	}
	return a.tierForScore(typeWeight * levelWeight)
}

func (a *Assessor) tierForScore(score float64) Tier {
	switch {
	case score <= a.weights.LowMax:
		return TierLow
	case score <= a.weights.MediumMax:
		return TierMedium
	default:
		return TierHigh
	}
}

// AssessResponse reclassifies from response text. Fired only at defined
// lifecycle points (entering ANALYSIS), never continuously.
func (a *Assessor) AssessResponse(response string) Tier {
	wordCount := len(strings.Fields(response))
	systems := a.hasSystemsVocabulary(response)

	switch {
	case wordCount > 200 && systems:
		return TierHigh
	case wordCount > 100 || systems:
		return TierMedium
	default:
		return TierLow
	}
}

func (a *Assessor) hasSystemsVocabulary(response string) bool {
	lower := strings.ToLower(response)
	for _, term := range a.vocab {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// SelectStrategy maps a complexity tier to a reasoning-depth strategy.
// Pure; invoked whenever complexity is (re)assessed.
func SelectStrategy(tier Tier) Strategy {
	switch tier {
	case TierLow:
		return StrategyLean
	case TierMedium:
		return StrategyChainOfThought
	case TierHigh:
		return StrategyStepBack
	default:
		return StrategyChainOfThought
	}
}
