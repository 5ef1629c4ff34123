package collab

import (
	"fmt"
	"time"

	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/proto"
)

// QuestionTemplates supplies the Interviewer's canned questions per phase.
// Injectable so tests and demos can substitute fixtures.
type QuestionTemplates map[string]string

// DefaultQuestionTemplates returns the standard phase-keyed question set.
func DefaultQuestionTemplates() QuestionTemplates {
	return QuestionTemplates{
		"SCOPING":     "Let's start broad: how would you frame the problem and its scope?",
		"ANALYSIS":    "Who are the key users here, and what do they actually need?",
		"SOLUTIONING": "Given that analysis, what would you build, and why that first?",
		"METRICS":     "How would you know this is working? Be specific about numbers.",
		"CHALLENGING": "Let me push back on part of your answer.",
	}
}

// NewInterviewerAgent builds the Interviewer collaborator. It answers
// question, phase, challenge, and intervention directives with
// question_generated replies drawn from the template table.
func NewInterviewerAgent(comm *comms.Communicator, interval time.Duration, templates QuestionTemplates) *Agent {
	if templates == nil {
		templates = DefaultQuestionTemplates()
	}

	var a *Agent
	a = newAgent(proto.AgentInterviewer, comm, interval, func(msg *proto.AgentMessage) {
		switch msg.Type {
		case proto.MsgTypeGenerateQuestion, proto.MsgTypePhaseUpdate:
			phase, _ := msg.GetPayloadString(proto.KeyNewPhase)
			question, ok := templates[phase]
			if !ok {
				question = "Tell me more about your thinking."
			}
			a.reply(proto.MsgTypeQuestionGenerated, msg.SessionID, map[string]any{
				proto.KeyQuestion: question,
			})

		case proto.MsgTypeChallengeRequest:
			target, _ := msg.GetPayloadString(proto.KeyChallengeType)
			question := templates["CHALLENGING"]
			if target != "" && target != "general" {
				question = fmt.Sprintf("%s Specifically, your %s could be stronger. Defend it.", question, target)
			}
			a.reply(proto.MsgTypeQuestionGenerated, msg.SessionID, map[string]any{
				proto.KeyQuestion:      question,
				proto.KeyChallengeType: target,
			})

		case proto.MsgTypeIntervention:
			// The coaching message is relayed verbatim as the next prompt.
			coaching, _ := msg.GetPayloadString(proto.KeyIntervention)
			a.reply(proto.MsgTypeQuestionGenerated, msg.SessionID, map[string]any{
				proto.KeyQuestion: coaching,
			})

		default:
			a.logger.Warn("ignoring %s message %s", msg.Type, msg.ID)
		}
	})
	return a
}
