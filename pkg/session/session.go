// Package session defines the per-interview state record the orchestrator
// maintains. State is mutated only under the owning orchestrator's lock;
// external readers get deep-copied snapshots.
package session

import (
	"time"

	"interviewcoach/pkg/complexity"
	"interviewcoach/pkg/proto"
)

// Context carries the interview setup supplied at session start plus any
// extracted material merged in later.
type Context struct {
	InterviewType  string            `json:"interview_type"`
	Level          string            `json:"level"`
	Resume         string            `json:"resume,omitempty"`
	JobDescription string            `json:"job_description,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// TimelineEntry records one phase transition.
type TimelineEntry struct {
	Phase     proto.Phase   `json:"phase"`
	Timestamp time.Time     `json:"timestamp"`
	Trigger   proto.Trigger `json:"trigger"`
}

// State is the full record for one interview session.
type State struct {
	SessionID     string              `json:"session_id"`
	UserID        string              `json:"user_id"`
	CurrentPhase  proto.Phase         `json:"current_phase"`
	PreviousPhase proto.Phase         `json:"previous_phase,omitempty"`
	Context       Context             `json:"context"`
	Complexity    complexity.Tier     `json:"complexity"`
	Strategy      complexity.Strategy `json:"strategy"`
	StartedAt     time.Time           `json:"started_at"`
	Timeline      []TimelineEntry     `json:"timeline"`

	// Scores is last-write-wins per competency.
	Scores map[string]float64 `json:"scores"`

	// Interventions is append-only for the session's lifetime.
	Interventions []proto.InterventionDirective `json:"interventions"`

	LastUserResponse string    `json:"last_user_response,omitempty"`
	LastResponseAt   time.Time `json:"last_response_at,omitempty"`
	LastQuestion     string    `json:"last_question,omitempty"`
}

// New creates a session state in the initial phase with the start recorded on
// the timeline.
func New(sessionID, userID string, ctx Context, initial proto.Phase, now time.Time) *State {
	return &State{
		SessionID:    sessionID,
		UserID:       userID,
		CurrentPhase: initial,
		Context:      ctx,
		StartedAt:    now,
		Timeline: []TimelineEntry{
			{Phase: initial, Timestamp: now, Trigger: proto.TriggerUserAction},
		},
		Scores: make(map[string]float64),
	}
}

// RecordTransition moves the session to the new phase and appends a timeline
// entry. Validity is the caller's responsibility.
func (s *State) RecordTransition(to proto.Phase, trigger proto.Trigger, now time.Time) {
	s.PreviousPhase = s.CurrentPhase
	s.CurrentPhase = to
	s.Timeline = append(s.Timeline, TimelineEntry{Phase: to, Timestamp: now, Trigger: trigger})
}

// RecordResponse stores the candidate's latest free-text answer.
func (s *State) RecordResponse(response string, now time.Time) {
	s.LastUserResponse = response
	s.LastResponseAt = now
}

// MergeScores applies competency scores last-write-wins. Competencies not
// present in the update keep their previous values.
func (s *State) MergeScores(scores map[string]float64) {
	if s.Scores == nil {
		s.Scores = make(map[string]float64, len(scores))
	}
	for competency, score := range scores {
		s.Scores[competency] = score
	}
}

// AppendIntervention adds a directive to the append-only intervention log.
func (s *State) AppendIntervention(directive proto.InterventionDirective) {
	s.Interventions = append(s.Interventions, directive)
}

// LowestCompetency returns the competency with the lowest score, or "" when
// no scores exist yet. Ties break on competency name for determinism.
func (s *State) LowestCompetency() string {
	lowest := ""
	var lowestScore float64
	for competency, score := range s.Scores {
		if lowest == "" || score < lowestScore || (score == lowestScore && competency < lowest) {
			lowest = competency
			lowestScore = score
		}
	}
	return lowest
}

// Snapshot returns a deep copy safe to hand outside the orchestrator's lock.
func (s *State) Snapshot() *State {
	copied := *s

	copied.Context.Extra = copyStringMap(s.Context.Extra)
	copied.Timeline = append([]TimelineEntry(nil), s.Timeline...)

	copied.Scores = make(map[string]float64, len(s.Scores))
	for competency, score := range s.Scores {
		copied.Scores[competency] = score
	}

	copied.Interventions = make([]proto.InterventionDirective, len(s.Interventions))
	for i, directive := range s.Interventions {
		copied.Interventions[i] = proto.InterventionDirective{
			Type:    directive.Type,
			Message: directive.Message,
			Context: copyStringMap(directive.Context),
		}
	}

	return &copied
}

// Metrics summarizes a session for monitoring surfaces.
type Metrics struct {
	SessionID         string             `json:"session_id"`
	CurrentPhase      proto.Phase        `json:"current_phase"`
	Complexity        complexity.Tier    `json:"complexity"`
	Elapsed           time.Duration      `json:"elapsed"`
	TransitionCount   int                `json:"transition_count"`
	InterventionCount int                `json:"intervention_count"`
	Scores            map[string]float64 `json:"scores"`
	AverageScore      float64            `json:"average_score"`
}

// MetricsAt computes the session's metrics as of the given time.
func (s *State) MetricsAt(now time.Time) Metrics {
	m := Metrics{
		SessionID:         s.SessionID,
		CurrentPhase:      s.CurrentPhase,
		Complexity:        s.Complexity,
		Elapsed:           now.Sub(s.StartedAt),
		TransitionCount:   len(s.Timeline) - 1, // the initial entry is not a transition
		InterventionCount: len(s.Interventions),
	}
	if m.TransitionCount < 0 {
		m.TransitionCount = 0
	}
	m.Scores = make(map[string]float64, len(s.Scores))
	var total float64
	for competency, score := range s.Scores {
		m.Scores[competency] = score
		total += score
	}
	if len(s.Scores) > 0 {
		m.AverageScore = total / float64(len(s.Scores))
	}
	return m
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
