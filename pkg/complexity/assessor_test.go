package complexity

import (
	"strings"
	"testing"
)

func TestAssessInitial(t *testing.T) {
	a := NewAssessor(DefaultWeights())

	tests := []struct {
		interviewType string
		level         string
		want          Tier
	}{
		{"technical system design", "L6", TierHigh}, // 1.2 * 1.4 = 1.68
		{"behavioral", "L3", TierLow},               // 0.8 * 0.9 = 0.72
		{"product sense", "L4", TierMedium},         // 1.0 * 1.0 = 1.0
		{"behavioral", "L4", TierLow},               // 0.8 * 1.0 = 0.8
		{"analytical", "L5", TierHigh},              // 1.1 * 1.2 = 1.32
		{"technical system design", "L3", TierMedium},
	}

	for _, tt := range tests {
		got := a.AssessInitial(tt.interviewType, tt.level)
		if got != tt.want {
			t.Errorf("AssessInitial(%q, %q) = %s, want %s", tt.interviewType, tt.level, got, tt.want)
		}
	}
}

func TestAssessInitialUnknownKeysFallBackToNeutral(t *testing.T) {
	a := NewAssessor(DefaultWeights())

	// 1.0 * 1.0 = 1.0 -> MEDIUM
	if got := a.AssessInitial("interpretive dance", "L99"); got != TierMedium {
		t.Errorf("Expected MEDIUM for unknown keys, got %s", got)
	}
}

func TestAssessInitialCaseInsensitive(t *testing.T) {
	a := NewAssessor(DefaultWeights())

	if got := a.AssessInitial("Technical System Design", "l6"); got != TierHigh {
		t.Errorf("Expected HIGH regardless of case, got %s", got)
	}
}

func TestAssessResponse(t *testing.T) {
	a := NewAssessor(DefaultWeights())

	shortPlain := "I would start by asking some questions."
	shortSystems := "The architecture needs to handle latency spikes."
	longPlain := strings.Repeat("the user wants a simple flow here ", 35)       // ~245 words, no systems terms
	longSystems := strings.Repeat("throughput and latency trade-off design ", 45) // >200 words with systems terms
	mediumPlain := strings.Repeat("walk through the customer journey slowly ", 20) // ~120 words

	tests := []struct {
		name     string
		response string
		want     Tier
	}{
		{"short plain", shortPlain, TierLow},
		{"short with systems vocab", shortSystems, TierMedium},
		{"long without systems vocab", longPlain, TierMedium},
		{"long with systems vocab", longSystems, TierHigh},
		{"medium plain", mediumPlain, TierMedium},
		{"empty", "", TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.AssessResponse(tt.response); got != tt.want {
				t.Errorf("AssessResponse = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAssessResponseCustomVocabulary(t *testing.T) {
	a := NewAssessorWithVocabulary(DefaultWeights(), []string{"flux capacitor"})

	if got := a.AssessResponse("the flux capacitor is overloaded"); got != TierMedium {
		t.Errorf("Expected MEDIUM from custom vocab hit, got %s", got)
	}
	if got := a.AssessResponse("the architecture is distributed"); got != TierLow {
		t.Errorf("Custom vocab should replace the default list, got %s", got)
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		tier Tier
		want Strategy
	}{
		{TierLow, StrategyLean},
		{TierMedium, StrategyChainOfThought},
		{TierHigh, StrategyStepBack},
	}

	for _, tt := range tests {
		if got := SelectStrategy(tt.tier); got != tt.want {
			t.Errorf("SelectStrategy(%s) = %s, want %s", tt.tier, got, tt.want)
		}
	}
}
