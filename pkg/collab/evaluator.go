package collab

import (
	"strings"
	"time"

	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/proto"
)

// competencySignals score a response by keyword presence. Each hit lifts the
// competency above the baseline; long answers earn a structure bonus.
var competencySignals = map[string][]string{
	"Problem Definition & Structuring": {"problem", "scope", "assume", "clarify", "goal"},
	"User Empathy":                     {"user", "customer", "persona", "segment", "pain"},
	"Prioritization & Decision-Making": {"prioritize", "trade-off", "tradeoff", "impact", "effort", "first"},
	"Metrics Definition":               {"metric", "measure", "rate", "percent", "baseline", "target"},
	"Communication":                    {"because", "therefore", "first", "second", "summary"},
}

const (
	baselineScore  = 2.0
	keywordLift    = 0.5
	maxScore       = 5.0
	structureWords = 80
)

// NewEvaluatorAgent builds the Evaluator collaborator: it scores responses
// with keyword heuristics and replies with response_scored.
func NewEvaluatorAgent(comm *comms.Communicator, interval time.Duration) *Agent {
	var a *Agent
	a = newAgent(proto.AgentEvaluator, comm, interval, func(msg *proto.AgentMessage) {
		if msg.Type != proto.MsgTypeEvaluateResponse {
			a.logger.Warn("ignoring %s message %s", msg.Type, msg.ID)
			return
		}

		response, _ := msg.GetPayloadString(proto.KeyResponse)
		a.reply(proto.MsgTypeResponseScored, msg.SessionID, map[string]any{
			proto.KeyScores: scoreResponse(response),
		})
	})
	return a
}

func scoreResponse(response string) map[string]float64 {
	lower := strings.ToLower(response)
	structured := len(strings.Fields(response)) >= structureWords

	scores := make(map[string]float64, len(competencySignals))
	for competency, keywords := range competencySignals {
		score := baselineScore
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				score += keywordLift
			}
		}
		if structured {
			score += keywordLift
		}
		if score > maxScore {
			score = maxScore
		}
		scores[competency] = score
	}
	return scores
}
