package collab

import (
	"fmt"
	"strings"
	"time"

	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/proto"
)

// domainKeywords map resume vocabulary to a domain label. Ordered so
// extraction is deterministic when several keywords appear.
var domainKeywords = []struct {
	keyword string
	domain  string
}{
	{"payments", "payments"},
	{"checkout", "payments"},
	{"machine learn", "ml"},
	{"data pipeline", "data"},
	{"analytics", "data"},
	{"infrastructure", "infrastructure"},
	{"mobile", "mobile"},
	{"growth", "growth"},
}

// NewContextAgent builds the Context collaborator: it answers
// context_extraction requests with keyword-derived facts about the resume
// and job description.
func NewContextAgent(comm *comms.Communicator, interval time.Duration) *Agent {
	var a *Agent
	a = newAgent(proto.AgentContext, comm, interval, func(msg *proto.AgentMessage) {
		if msg.Type != proto.MsgTypeContextExtraction {
			a.logger.Warn("ignoring %s message %s", msg.Type, msg.ID)
			return
		}

		resume, _ := msg.GetPayloadString(proto.KeyResume)
		jd, _ := msg.GetPayloadString(proto.KeyJobDescription)
		a.reply(proto.MsgTypeContextReady, msg.SessionID, extractContext(resume, jd))
	})
	return a
}

func extractContext(resume, jd string) map[string]any {
	payload := map[string]any{
		"resume_word_count": fmt.Sprintf("%d", len(strings.Fields(resume))),
	}

	combined := strings.ToLower(resume + " " + jd)
	for _, entry := range domainKeywords {
		if strings.Contains(combined, entry.keyword) {
			payload["domain"] = entry.domain
			break
		}
	}
	if strings.Contains(combined, "lead") || strings.Contains(combined, "manager") {
		payload["leadership_signal"] = "true"
	}
	return payload
}
