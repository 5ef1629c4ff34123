// Package proto defines the message protocol exchanged between the session
// orchestrator and its collaborator agents.
package proto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MsgType identifies the kind of agent message.
type MsgType string

// Outbound directives (orchestrator → collaborator).
const (
	MsgTypeContextExtraction MsgType = "context_extraction" // Resume/JD parsing request for Context agent
	MsgTypeEvaluateResponse  MsgType = "evaluate_response"  // Scoring request for Evaluator agent
	MsgTypeGenerateQuestion  MsgType = "generate_question"  // Question request for Interviewer agent
	MsgTypePhaseUpdate       MsgType = "phase_update"       // Phase/complexity/strategy directive for Interviewer
	MsgTypeChallengeRequest  MsgType = "challenge_request"  // Challenge directive for Interviewer
	MsgTypeGenerateReport    MsgType = "generate_report"    // Report request for Synthesis agent
	MsgTypeIntervention      MsgType = "intervention"       // Corrective directive for Interviewer
	MsgTypeStrategyDirective MsgType = "strategy_directive" // Standalone reasoning strategy change for Interviewer
)

// Inbound replies (collaborator → orchestrator).
const (
	MsgTypeContextReady      MsgType = "context_ready"
	MsgTypeResponseScored    MsgType = "response_scored"
	MsgTypeQuestionGenerated MsgType = "question_generated"
	MsgTypeReportReady       MsgType = "report_ready"
)

// String returns the string representation of MsgType.
func (mt MsgType) String() string {
	return string(mt)
}

// ValidateMsgType validates if a string is a valid message type.
func ValidateMsgType(msgType string) (MsgType, bool) {
	switch MsgType(msgType) {
	case MsgTypeContextExtraction, MsgTypeEvaluateResponse, MsgTypeGenerateQuestion,
		MsgTypePhaseUpdate, MsgTypeChallengeRequest, MsgTypeGenerateReport,
		MsgTypeIntervention, MsgTypeStrategyDirective, MsgTypeContextReady,
		MsgTypeResponseScored, MsgTypeQuestionGenerated, MsgTypeReportReady:
		return MsgType(msgType), true
	default:
		return "", false
	}
}

// ParseMsgType parses a string into a MsgType with validation.
func ParseMsgType(s string) (MsgType, error) {
	if msgType, ok := ValidateMsgType(strings.ToLower(s)); ok {
		return msgType, nil
	}
	return "", fmt.Errorf("unknown message type: %s", s)
}

// Well-known agent names.
const (
	AgentOrchestrator = "orchestrator"
	AgentContext      = "context"
	AgentInterviewer  = "interviewer"
	AgentEvaluator    = "evaluator"
	AgentSynthesis    = "synthesis"
)

// Common payload keys used in agent messages.
const (
	KeyResume           = "resume"
	KeyJobDescription   = "job_description"
	KeyInterviewType    = "interview_type"
	KeyLevel            = "level"
	KeyResponse         = "response"
	KeyScores           = "scores"
	KeyQuestion         = "question"
	KeyNewPhase         = "new_phase"
	KeyComplexity       = "complexity"
	KeyStrategy         = "reasoning_strategy"
	KeyChallengeType    = "challenge_type"
	KeySessionHistory   = "session_history"
	KeyCurrentScores    = "current_scores"
	KeySessionData      = "session_data"
	KeyFinalScores      = "final_scores"
	KeyIntervention     = "intervention"
	KeyInterventionType = "intervention_type"
	KeyReport           = "report"
)

// AgentMessage is the unit of communication between the orchestrator and
// collaborator agents. A message is immutable once sent; recipients that need
// to retain payload data past handling must Clone it.
type AgentMessage struct {
	ID        string         `json:"id"`
	Type      MsgType        `json:"type"`
	FromAgent string         `json:"from_agent"`
	ToAgent   string         `json:"to_agent"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// NewAgentMessage creates a message with a fresh ID and UTC timestamp.
func NewAgentMessage(msgType MsgType, fromAgent, toAgent, sessionID string) *AgentMessage {
	return &AgentMessage{
		ID:        uuid.NewString(),
		Type:      msgType,
		FromAgent: fromAgent,
		ToAgent:   toAgent,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   make(map[string]any),
	}
}

// SetPayload sets a payload value, initializing the map if needed.
func (m *AgentMessage) SetPayload(key string, value any) {
	if m.Payload == nil {
		m.Payload = make(map[string]any)
	}
	m.Payload[key] = value
}

// GetPayload returns a payload value and whether it exists.
func (m *AgentMessage) GetPayload(key string) (any, bool) {
	if m.Payload == nil {
		return nil, false
	}
	val, exists := m.Payload[key]
	return val, exists
}

// GetPayloadString returns a payload value as a string.
func (m *AgentMessage) GetPayloadString(key string) (string, bool) {
	val, exists := m.GetPayload(key)
	if !exists {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Clone returns a deep copy of the message.
func (m *AgentMessage) Clone() *AgentMessage {
	clone := &AgentMessage{
		ID:        m.ID,
		Type:      m.Type,
		FromAgent: m.FromAgent,
		ToAgent:   m.ToAgent,
		SessionID: m.SessionID,
		Timestamp: m.Timestamp,
	}
	if m.Payload != nil {
		clone.Payload = make(map[string]any, len(m.Payload))
		for k, v := range m.Payload {
			clone.Payload[k] = v
		}
	}
	return clone
}

// Validate checks that the message carries the required routing fields.
func (m *AgentMessage) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}
	if m.Type == "" {
		return fmt.Errorf("message type is required")
	}
	if m.FromAgent == "" {
		return fmt.Errorf("from_agent is required")
	}
	if m.ToAgent == "" {
		return fmt.Errorf("to_agent is required")
	}
	if m.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if _, valid := ValidateMsgType(string(m.Type)); !valid {
		return fmt.Errorf("invalid message type: %s", m.Type)
	}
	return nil
}

// ToJSON serializes the message.
func (m *AgentMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON parses a serialized message.
func FromJSON(data []byte) (*AgentMessage, error) {
	var msg AgentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal AgentMessage: %w", err)
	}
	return &msg, nil
}
