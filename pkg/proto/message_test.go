package proto

import (
	"testing"
)

func TestNewAgentMessage(t *testing.T) {
	msg := NewAgentMessage(MsgTypeEvaluateResponse, AgentOrchestrator, AgentEvaluator, "sess-1")

	if msg.ID == "" {
		t.Error("Expected non-empty message ID")
	}
	if msg.Type != MsgTypeEvaluateResponse {
		t.Errorf("Expected type %s, got %s", MsgTypeEvaluateResponse, msg.Type)
	}
	if msg.FromAgent != AgentOrchestrator || msg.ToAgent != AgentEvaluator {
		t.Errorf("Unexpected routing: %s -> %s", msg.FromAgent, msg.ToAgent)
	}
	if msg.SessionID != "sess-1" {
		t.Errorf("Expected session sess-1, got %s", msg.SessionID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected non-zero timestamp")
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("Fresh message should validate: %v", err)
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewAgentMessage(MsgTypeContextReady, AgentContext, AgentOrchestrator, "sess-1")
		if seen[msg.ID] {
			t.Fatalf("Duplicate message ID: %s", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestPayloadHelpers(t *testing.T) {
	msg := NewAgentMessage(MsgTypeResponseScored, AgentEvaluator, AgentOrchestrator, "sess-1")
	msg.SetPayload(KeyScores, map[string]float64{"Technical Depth": 4})

	val, exists := msg.GetPayload(KeyScores)
	if !exists {
		t.Fatal("Expected scores payload to exist")
	}
	scores, ok := val.(map[string]float64)
	if !ok || scores["Technical Depth"] != 4 {
		t.Errorf("Unexpected scores payload: %v", val)
	}

	if _, exists := msg.GetPayload("missing"); exists {
		t.Error("Expected missing key to not exist")
	}
}

func TestClone(t *testing.T) {
	msg := NewAgentMessage(MsgTypeGenerateQuestion, AgentOrchestrator, AgentInterviewer, "sess-1")
	msg.SetPayload(KeyQuestion, "Tell me about scoping")

	clone := msg.Clone()
	clone.SetPayload(KeyQuestion, "mutated")

	original, _ := msg.GetPayloadString(KeyQuestion)
	if original != "Tell me about scoping" {
		t.Error("Clone mutation leaked into original payload")
	}
	if clone.ID != msg.ID || clone.SessionID != msg.SessionID {
		t.Error("Clone should preserve identity fields")
	}
}

func TestValidateRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AgentMessage)
	}{
		{"missing id", func(m *AgentMessage) { m.ID = "" }},
		{"missing type", func(m *AgentMessage) { m.Type = "" }},
		{"missing from", func(m *AgentMessage) { m.FromAgent = "" }},
		{"missing to", func(m *AgentMessage) { m.ToAgent = "" }},
		{"missing session", func(m *AgentMessage) { m.SessionID = "" }},
		{"invalid type", func(m *AgentMessage) { m.Type = "nonsense" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewAgentMessage(MsgTypeContextReady, AgentContext, AgentOrchestrator, "sess-1")
			tt.mutate(msg)
			if err := msg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	msg := NewAgentMessage(MsgTypePhaseUpdate, AgentOrchestrator, AgentInterviewer, "sess-9")
	msg.SetPayload(KeyNewPhase, "ANALYSIS")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	parsed, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if parsed.ID != msg.ID || parsed.Type != msg.Type || parsed.SessionID != msg.SessionID {
		t.Errorf("Round trip mismatch: %+v vs %+v", parsed, msg)
	}
	if phase, _ := parsed.GetPayloadString(KeyNewPhase); phase != "ANALYSIS" {
		t.Errorf("Expected payload to survive round trip, got %q", phase)
	}
}

func TestParsePhase(t *testing.T) {
	phase, err := ParsePhase("scoping")
	if err != nil || phase != PhaseScoping {
		t.Errorf("Expected SCOPING, got %v (%v)", phase, err)
	}

	if _, err := ParsePhase("LIMBO"); err == nil {
		t.Error("Expected error for unknown phase")
	}
}

func TestParseMsgType(t *testing.T) {
	mt, err := ParseMsgType("RESPONSE_SCORED")
	if err != nil || mt != MsgTypeResponseScored {
		t.Errorf("Expected response_scored, got %v (%v)", mt, err)
	}

	if _, err := ParseMsgType("bogus"); err == nil {
		t.Error("Expected error for unknown message type")
	}
}

func TestParseInterventionType(t *testing.T) {
	it, err := ParseInterventionType("ENSURE_USER_FOCUS")
	if err != nil || it != InterventionEnsureUserFocus {
		t.Errorf("Expected ENSURE_USER_FOCUS, got %v (%v)", it, err)
	}

	if _, err := ParseInterventionType("BE_NICER"); err == nil {
		t.Error("Expected error for unknown intervention type")
	}
}
