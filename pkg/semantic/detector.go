// Package semantic scans free-text candidate responses for phrases implying
// the candidate has moved on to a later interview phase. Detection is purely
// advisory; the state machine still decides validity.
package semantic

import (
	"strings"

	"interviewcoach/pkg/proto"
)

// TransitionHint pairs a target phase with the phrases that suggest it.
type TransitionHint struct {
	Target  proto.Phase `yaml:"target"`
	Phrases []string    `yaml:"phrases"`
}

// HintTable maps a source phase to its ordered transition hints. Hints are
// tested in declaration order; the first hint with a matching phrase wins.
type HintTable map[proto.Phase][]TransitionHint

// DefaultHints returns the standard phrase table.
func DefaultHints() HintTable {
	return HintTable{
		proto.PhaseScoping: {
			{Target: proto.PhaseAnalysis, Phrases: []string{
				"move on to the users",
				"user segments",
				"let's talk about the users",
				"who the users are",
				"moving to analysis",
			}},
		},
		proto.PhaseAnalysis: {
			{Target: proto.PhaseSolutioning, Phrases: []string{
				"my solution",
				"i would build",
				"propose the following",
				"let's brainstorm solutions",
				"moving on to solutions",
			}},
		},
		proto.PhaseSolutioning: {
			{Target: proto.PhaseMetrics, Phrases: []string{
				"how we'd measure",
				"success metrics",
				"measure success",
				"moving on to metrics",
			}},
		},
		proto.PhaseMetrics: {
			{Target: proto.PhaseChallenging, Phrases: []string{
				"that covers the metrics",
				"ready for questions",
				"open to pushback",
			}},
		},
	}
}

// Detector matches responses against a hint table.
type Detector struct {
	hints HintTable
}

// NewDetector creates a detector over the supplied hint table. The table is
// copied so callers cannot mutate the detector after construction.
func NewDetector(hints HintTable) *Detector {
	copied := make(HintTable, len(hints))
	for phase, phaseHints := range hints {
		entries := make([]TransitionHint, len(phaseHints))
		for i, hint := range phaseHints {
			entries[i] = TransitionHint{
				Target:  hint.Target,
				Phrases: append([]string(nil), hint.Phrases...),
			}
		}
		copied[phase] = entries
	}
	return &Detector{hints: copied}
}

// Detect returns the first target phase whose phrase list matches the
// response (case-insensitive substring), or false when nothing matches.
func (d *Detector) Detect(current proto.Phase, response string) (proto.Phase, bool) {
	lower := strings.ToLower(response)
	for _, hint := range d.hints[current] {
		for _, phrase := range hint.Phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return hint.Target, true
			}
		}
	}
	return "", false
}
