package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewcoach/pkg/breaker"
	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/complexity"
	"interviewcoach/pkg/fsm"
	"interviewcoach/pkg/gating"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/semantic"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *comms.Communicator, *breaker.Registry) {
	t.Helper()

	comm := comms.NewCommunicator()
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: 2,
		Window:           time.Minute,
		Cooldown:         5 * time.Millisecond,
	})

	o, err := New(Deps{
		Machine:  fsm.New(),
		Assessor: complexity.NewAssessor(complexity.DefaultWeights()),
		Detector: semantic.NewDetector(semantic.DefaultHints()),
		Gate:     gating.NewEngine(gating.DefaultRules()),
		Comm:     comm,
		Breakers: breakers,
	})
	require.NoError(t, err)
	return o, comm, breakers
}

func startSession(t *testing.T, o *Orchestrator, sessionID string) StartResult {
	t.Helper()
	result, err := o.StartInterview(context.Background(), StartRequest{
		SessionID:     sessionID,
		UserID:        "user-1",
		InterviewType: "product sense",
		Level:         "L5",
	})
	require.NoError(t, err)
	return result
}

func TestStartInterviewLandsInScoping(t *testing.T) {
	o, comm, _ := newTestOrchestrator(t)

	result := startSession(t, o, "sess-1")

	assert.Equal(t, proto.PhaseScoping, result.Phase, "CONFIGURING must never be the observable post-start phase")
	assert.Equal(t, complexity.TierMedium, result.Complexity)
	assert.Equal(t, complexity.StrategyChainOfThought, result.Strategy)

	// No resume: the Context agent hears nothing, the Interviewer always does.
	assert.Equal(t, 0, comm.Pending(proto.AgentContext))
	msgs := comm.Receive(proto.AgentInterviewer)
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.MsgTypeGenerateQuestion, msgs[0].Type)
	phase, _ := msgs[0].GetPayloadString(proto.KeyNewPhase)
	assert.Equal(t, "SCOPING", phase)
}

func TestStartInterviewWithResumeMessagesContext(t *testing.T) {
	o, comm, _ := newTestOrchestrator(t)

	_, err := o.StartInterview(context.Background(), StartRequest{
		SessionID:     "sess-1",
		UserID:        "user-1",
		InterviewType: "behavioral",
		Level:         "L3",
		Resume:        "Shipped two consumer products.",
	})
	require.NoError(t, err)

	msgs := comm.Receive(proto.AgentContext)
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.MsgTypeContextExtraction, msgs[0].Type)
	resume, _ := msgs[0].GetPayloadString(proto.KeyResume)
	assert.Equal(t, "Shipped two consumer products.", resume)
}

func TestStartInterviewDuplicateID(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	startSession(t, o, "sess-1")
	_, err := o.StartInterview(context.Background(), StartRequest{
		SessionID:     "sess-1",
		UserID:        "user-2",
		InterviewType: "behavioral",
		Level:         "L3",
	})
	assert.ErrorIs(t, err, ErrSessionExists)

	// The original session is untouched.
	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", state.UserID)
}

func TestHandleUserResponseUnknownSession(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	_, err := o.HandleUserResponse(context.Background(), "ghost", "hello", time.Time{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSemanticTransitionToAnalysis(t *testing.T) {
	o, comm, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")
	comm.Receive(proto.AgentInterviewer) // drop the start question

	response := "Now I'll move on to the users. The key user segments I see are power users and casual users."
	result, err := o.HandleUserResponse(context.Background(), "sess-1", response, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, ActionPhaseTransition, result.Action)
	assert.Equal(t, proto.PhaseAnalysis, result.NewPhase)

	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, proto.PhaseAnalysis, state.CurrentPhase)
	require.Len(t, state.Timeline, 3)
	assert.Equal(t, proto.TriggerSemantic, state.Timeline[2].Trigger)

	// Entry effect: one phase_update to the Interviewer with the reassessed
	// complexity and strategy.
	var phaseUpdates []*proto.AgentMessage
	for _, msg := range comm.Receive(proto.AgentInterviewer) {
		if msg.Type == proto.MsgTypePhaseUpdate {
			phaseUpdates = append(phaseUpdates, msg)
		}
	}
	require.Len(t, phaseUpdates, 1)
	newPhase, _ := phaseUpdates[0].GetPayloadString(proto.KeyNewPhase)
	assert.Equal(t, "ANALYSIS", newPhase)
	tier, _ := phaseUpdates[0].GetPayloadString(proto.KeyComplexity)
	assert.Equal(t, "LOW", tier, "short non-systems response reassesses LOW")

	// The Evaluator was asked to score the response.
	evals := comm.Receive(proto.AgentEvaluator)
	require.Len(t, evals, 1)
	assert.Equal(t, proto.MsgTypeEvaluateResponse, evals[0].Type)
}

func TestNoDetectionContinuesCurrentPhase(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")

	result, err := o.HandleUserResponse(context.Background(), "sess-1", "Could you clarify the goal?", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, ActionContinueCurrentPhase, result.Action)

	state, _ := o.GetSessionState("sess-1")
	assert.Equal(t, proto.PhaseScoping, state.CurrentPhase)
	assert.Equal(t, "Could you clarify the goal?", state.LastUserResponse)
}

func TestInvalidDetectionNeverErrors(t *testing.T) {
	// Hint table that suggests a transition the state machine forbids.
	hints := semantic.HintTable{
		proto.PhaseScoping: {
			{Target: proto.PhaseEnd, Phrases: []string{"wrap up"}},
		},
	}
	comm := comms.NewCommunicator()
	o, err := New(Deps{
		Machine:  fsm.New(),
		Assessor: complexity.NewAssessor(complexity.DefaultWeights()),
		Detector: semantic.NewDetector(hints),
		Gate:     gating.NewEngine(gating.DefaultRules()),
		Comm:     comm,
		Breakers: breaker.NewRegistry(breaker.DefaultConfig()),
	})
	require.NoError(t, err)
	startSession(t, o, "sess-1")

	result, err := o.HandleUserResponse(context.Background(), "sess-1", "let's wrap up here", time.Time{})
	require.NoError(t, err, "invalid transitions are recovered, never surfaced")
	assert.Equal(t, ActionContinueCurrentPhase, result.Action)

	state, _ := o.GetSessionState("sess-1")
	assert.Equal(t, proto.PhaseScoping, state.CurrentPhase, "state must not mutate on invalid transition")
}

func TestResponseScoredLastWriteWins(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")

	for _, score := range []float64{4, 2} {
		msg := proto.NewAgentMessage(proto.MsgTypeResponseScored, proto.AgentEvaluator, proto.AgentOrchestrator, "sess-1")
		msg.SetPayload(proto.KeyScores, map[string]float64{"Technical Depth": score})
		o.HandleAgentMessage(msg)
	}

	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, state.Scores["Technical Depth"], "last write wins, not averaged or summed")
}

func TestResponseScoredTriggersGating(t *testing.T) {
	o, comm, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")
	comm.Receive(proto.AgentInterviewer)

	_, err := o.HandleUserResponse(context.Background(), "sess-1",
		"I would build a recommendation feature to solve this.", time.Time{})
	require.NoError(t, err)

	msg := proto.NewAgentMessage(proto.MsgTypeResponseScored, proto.AgentEvaluator, proto.AgentOrchestrator, "sess-1")
	msg.SetPayload(proto.KeyScores, map[string]float64{"Problem Definition & Structuring": 2})
	o.HandleAgentMessage(msg)

	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	require.Len(t, state.Interventions, 1, "exactly one intervention appended")
	assert.Equal(t, proto.InterventionPreventPrematureSolutioning, state.Interventions[0].Type)

	// The directive is also forwarded to the Interviewer.
	var interventions []*proto.AgentMessage
	for _, m := range comm.Receive(proto.AgentInterviewer) {
		if m.Type == proto.MsgTypeIntervention {
			interventions = append(interventions, m)
		}
	}
	require.Len(t, interventions, 1)
	kind, _ := interventions[0].GetPayloadString(proto.KeyInterventionType)
	assert.Equal(t, string(proto.InterventionPreventPrematureSolutioning), kind)
}

func TestContextReadyMergesContext(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")

	msg := proto.NewAgentMessage(proto.MsgTypeContextReady, proto.AgentContext, proto.AgentOrchestrator, "sess-1")
	msg.SetPayload("years_experience", "8")
	msg.SetPayload("domain", "payments")
	o.HandleAgentMessage(msg)

	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "8", state.Context.Extra["years_experience"])
	assert.Equal(t, "payments", state.Context.Extra["domain"])
}

func TestQuestionGeneratedRecorded(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")

	msg := proto.NewAgentMessage(proto.MsgTypeQuestionGenerated, proto.AgentInterviewer, proto.AgentOrchestrator, "sess-1")
	msg.SetPayload(proto.KeyQuestion, "How would you improve onboarding?")
	o.HandleAgentMessage(msg)

	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "How would you improve onboarding?", state.LastQuestion)
}

func TestUnknownSessionMessageIsNoOp(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	msg := proto.NewAgentMessage(proto.MsgTypeResponseScored, proto.AgentEvaluator, proto.AgentOrchestrator, "ghost")
	msg.SetPayload(proto.KeyScores, map[string]float64{"Communication": 3})

	// Late and racing messages are expected; must not panic or error.
	o.HandleAgentMessage(msg)
}

func TestAdvancePhaseChallengeTargetsLowestCompetency(t *testing.T) {
	o, comm, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")
	comm.Receive(proto.AgentInterviewer)

	scored := proto.NewAgentMessage(proto.MsgTypeResponseScored, proto.AgentEvaluator, proto.AgentOrchestrator, "sess-1")
	scored.SetPayload(proto.KeyScores, map[string]float64{
		"Communication":      4,
		"Metrics Definition": 2,
	})
	o.HandleAgentMessage(scored)

	result, err := o.AdvancePhase("sess-1", proto.PhaseChallenging)
	require.NoError(t, err)
	assert.Equal(t, ActionPhaseTransition, result.Action)

	var challenges []*proto.AgentMessage
	for _, m := range comm.Receive(proto.AgentInterviewer) {
		if m.Type == proto.MsgTypeChallengeRequest {
			challenges = append(challenges, m)
		}
	}
	require.Len(t, challenges, 1)
	target, _ := challenges[0].GetPayloadString(proto.KeyChallengeType)
	assert.Equal(t, "Metrics Definition", target)
}

func TestReportGenerationMessagesSynthesis(t *testing.T) {
	o, comm, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")

	_, err := o.AdvancePhase("sess-1", proto.PhaseChallenging)
	require.NoError(t, err)
	result, err := o.AdvancePhase("sess-1", proto.PhaseReportGeneration)
	require.NoError(t, err)
	assert.Equal(t, proto.PhaseReportGeneration, result.NewPhase)

	msgs := comm.Receive(proto.AgentSynthesis)
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.MsgTypeGenerateReport, msgs[0].Type)
	_, hasData := msgs[0].GetPayload(proto.KeySessionData)
	assert.True(t, hasData)
}

func TestReportReadyEndsSession(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")
	_, err := o.AdvancePhase("sess-1", proto.PhaseChallenging)
	require.NoError(t, err)
	_, err = o.AdvancePhase("sess-1", proto.PhaseReportGeneration)
	require.NoError(t, err)

	ready := proto.NewAgentMessage(proto.MsgTypeReportReady, proto.AgentSynthesis, proto.AgentOrchestrator, "sess-1")
	ready.SetPayload(proto.KeyReport, "Great structure, weak metrics.")
	o.HandleAgentMessage(ready)

	state, err := o.GetSessionState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, proto.PhaseEnd, state.CurrentPhase)
}

func TestConcurrentStartsAreIndependent(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.StartInterview(context.Background(), StartRequest{
				SessionID:     fmt.Sprintf("sess-%d", i),
				UserID:        fmt.Sprintf("user-%d", i),
				InterviewType: "product sense",
				Level:         "L4",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		state, err := o.GetSessionState(fmt.Sprintf("sess-%d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("user-%d", i), state.UserID, "no cross-session contamination")
		assert.Equal(t, proto.PhaseScoping, state.CurrentPhase)
	}
}

func TestOpenCircuitDegradesGracefully(t *testing.T) {
	o, comm, breakers := newTestOrchestrator(t)

	// Trip the Interviewer circuit before the session starts.
	boom := errors.New("collaborator down")
	for i := 0; i < 2; i++ {
		_ = breakers.Execute(proto.AgentInterviewer, "send", func() error { return boom })
	}
	require.Equal(t, breaker.Open, breakers.State(proto.AgentInterviewer, "send"))

	result, err := o.StartInterview(context.Background(), StartRequest{
		SessionID:     "sess-1",
		UserID:        "user-1",
		InterviewType: "analytical",
		Level:         "L4",
	})
	require.NoError(t, err, "an open circuit must never fail the user-facing call")
	assert.Equal(t, proto.PhaseScoping, result.Phase)
	assert.Equal(t, 0, comm.Pending(proto.AgentInterviewer), "no message attempted while open")
}

func TestGetSessionMetrics(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	startSession(t, o, "sess-1")

	scored := proto.NewAgentMessage(proto.MsgTypeResponseScored, proto.AgentEvaluator, proto.AgentOrchestrator, "sess-1")
	scored.SetPayload(proto.KeyScores, map[string]float64{"Communication": 3})
	o.HandleAgentMessage(scored)

	metrics, err := o.GetSessionMetrics("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.TransitionCount)
	assert.Equal(t, proto.PhaseScoping, metrics.CurrentPhase)
	assert.Equal(t, 3.0, metrics.AverageScore)

	_, err = o.GetSessionMetrics("ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDispatcherRoutesRepliesToHandler(t *testing.T) {
	comm := comms.NewCommunicator()
	o, err := New(Deps{
		Machine:          fsm.New(),
		Assessor:         complexity.NewAssessor(complexity.DefaultWeights()),
		Detector:         semantic.NewDetector(semantic.DefaultHints()),
		Gate:             gating.NewEngine(gating.DefaultRules()),
		Comm:             comm,
		Breakers:         breaker.NewRegistry(breaker.DefaultConfig()),
		DispatchInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	startSession(t, o, "sess-1")

	require.NoError(t, o.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, o.Stop(ctx))
	}()

	reply := proto.NewAgentMessage(proto.MsgTypeQuestionGenerated, proto.AgentInterviewer, proto.AgentOrchestrator, "sess-1")
	reply.SetPayload(proto.KeyQuestion, "Walk me through your approach.")
	require.NoError(t, comm.Send(reply))

	assert.Eventually(t, func() bool {
		state, err := o.GetSessionState("sess-1")
		return err == nil && state.LastQuestion == "Walk me through your approach."
	}, time.Second, 5*time.Millisecond)
}
