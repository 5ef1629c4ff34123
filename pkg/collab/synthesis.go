package collab

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"interviewcoach/pkg/archive"
	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/session"
)

// NewSynthesisAgent builds the Synthesis collaborator: it assembles the
// final report from the session data, optionally persists it to the archive
// store, and replies with report_ready. A nil store disables persistence.
func NewSynthesisAgent(comm *comms.Communicator, interval time.Duration, store *archive.Store) *Agent {
	var a *Agent
	a = newAgent(proto.AgentSynthesis, comm, interval, func(msg *proto.AgentMessage) {
		if msg.Type != proto.MsgTypeGenerateReport {
			a.logger.Warn("ignoring %s message %s", msg.Type, msg.ID)
			return
		}

		data, ok := msg.GetPayload(proto.KeySessionData)
		if !ok {
			a.logger.Error("session %s: generate_report without session data", msg.SessionID)
			return
		}
		state, ok := data.(*session.State)
		if !ok {
			a.logger.Error("session %s: unexpected session data type %T", msg.SessionID, data)
			return
		}

		report := buildReport(state)
		if store != nil {
			rec := &archive.Record{
				SessionID:         state.SessionID,
				UserID:            state.UserID,
				InterviewType:     state.Context.InterviewType,
				Level:             state.Context.Level,
				Complexity:        state.Complexity.String(),
				StartedAt:         state.StartedAt,
				CompletedAt:       time.Now().UTC(),
				FinalPhase:        state.CurrentPhase.String(),
				Scores:            state.Scores,
				Report:            report,
				TransitionCount:   len(state.Timeline) - 1,
				InterventionCount: len(state.Interventions),
			}
			if err := store.Save(context.Background(), rec); err != nil {
				a.logger.Error("session %s: archive save failed: %v", state.SessionID, err)
			}
		}

		a.reply(proto.MsgTypeReportReady, msg.SessionID, map[string]any{
			proto.KeyReport: report,
		})
	})
	return a
}

func buildReport(state *session.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview report for session %s (%s, %s)\n",
		state.SessionID, state.Context.InterviewType, state.Context.Level)
	fmt.Fprintf(&b, "Complexity %s, strategy %s, %d phase transitions, %d interventions.\n",
		state.Complexity, state.Strategy, len(state.Timeline)-1, len(state.Interventions))

	competencies := make([]string, 0, len(state.Scores))
	for competency := range state.Scores {
		competencies = append(competencies, competency)
	}
	sort.Strings(competencies)
	for _, competency := range competencies {
		fmt.Fprintf(&b, "- %s: %.1f/5\n", competency, state.Scores[competency])
	}

	if weakest := state.LowestCompetency(); weakest != "" {
		fmt.Fprintf(&b, "Focus area for next session: %s.\n", weakest)
	}
	return b.String()
}
