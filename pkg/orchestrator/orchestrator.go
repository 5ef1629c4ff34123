// Package orchestrator is the composition root for interview sessions. It
// owns the session table, applies phase transitions through the state
// machine, and coordinates the collaborator agents over the communicator.
//
// An Orchestrator is explicitly constructed and dependency-injected; there
// is no package-level instance.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"interviewcoach/pkg/breaker"
	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/complexity"
	"interviewcoach/pkg/fsm"
	"interviewcoach/pkg/gating"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/semantic"
	"interviewcoach/pkg/session"
	"interviewcoach/pkg/telemetry"
)

// Sentinel errors surfaced to callers.
var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// Actions reported by HandleUserResponse.
const (
	ActionPhaseTransition      = "phase_transition"
	ActionContinueCurrentPhase = "continue_current_phase"
)

// Deps carries everything an Orchestrator needs. All fields except Telemetry
// are required.
type Deps struct {
	Machine   *fsm.Machine
	Assessor  *complexity.Assessor
	Detector  *semantic.Detector
	Gate      *gating.Engine
	Comm      *comms.Communicator
	Breakers  *breaker.Registry
	Telemetry telemetry.Sink

	// DispatchInterval is the polling tick for the orchestrator's own
	// mailbox. Zero means 50ms.
	DispatchInterval time.Duration
}

// managedSession pairs a session's state with its serialization lock.
// Distinct sessions never contend on each other's lock.
type managedSession struct {
	mu    sync.Mutex
	state *session.State
}

// Orchestrator coordinates interview sessions.
type Orchestrator struct {
	logger     *logx.Logger
	machine    *fsm.Machine
	assessor   *complexity.Assessor
	detector   *semantic.Detector
	gate       *gating.Engine
	comm       *comms.Communicator
	breakers   *breaker.Registry
	sink       telemetry.Sink
	dispatcher *comms.Dispatcher
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// New constructs an orchestrator from its dependencies.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Machine == nil || deps.Assessor == nil || deps.Detector == nil ||
		deps.Gate == nil || deps.Comm == nil || deps.Breakers == nil {
		return nil, fmt.Errorf("orchestrator: missing required dependency")
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NopSink{}
	}
	interval := deps.DispatchInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	o := &Orchestrator{
		logger:   logx.NewLogger("orchestrator"),
		machine:  deps.Machine,
		assessor: deps.Assessor,
		detector: deps.Detector,
		gate:     deps.Gate,
		comm:     deps.Comm,
		breakers: deps.Breakers,
		sink:     deps.Telemetry,
		now:      time.Now,
		sessions: make(map[string]*managedSession),
	}
	o.dispatcher = comms.NewDispatcher(deps.Comm, proto.AgentOrchestrator, interval, o.HandleAgentMessage)
	return o, nil
}

// Start begins polling the orchestrator's own mailbox for collaborator
// replies.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.dispatcher.Start(ctx)
}

// Stop halts mailbox polling, draining messages already queued.
func (o *Orchestrator) Stop(ctx context.Context) error {
	return o.dispatcher.Stop(ctx)
}

// StartRequest carries the interview setup.
type StartRequest struct {
	SessionID      string
	UserID         string
	InterviewType  string
	Level          string
	Resume         string
	JobDescription string
}

// StartResult reports the observable outcome of StartInterview.
type StartResult struct {
	SessionID  string
	Phase      proto.Phase
	Complexity complexity.Tier
	Strategy   complexity.Strategy
}

// StartInterview creates a session, moves it into SCOPING, runs the initial
// complexity assessment, and notifies the collaborators. A duplicate session
// ID fails the call; collaborator send failures never do.
func (o *Orchestrator) StartInterview(ctx context.Context, req StartRequest) (StartResult, error) {
	if req.SessionID == "" || req.UserID == "" {
		return StartResult{}, fmt.Errorf("start interview: session and user IDs are required")
	}

	now := o.now()
	state := session.New(req.SessionID, req.UserID, session.Context{
		InterviewType:  req.InterviewType,
		Level:          req.Level,
		Resume:         req.Resume,
		JobDescription: req.JobDescription,
	}, o.machine.Initial(), now)

	ms := &managedSession{state: state}

	o.mu.Lock()
	if _, exists := o.sessions[req.SessionID]; exists {
		o.mu.Unlock()
		return StartResult{}, fmt.Errorf("%w: %s", ErrSessionExists, req.SessionID)
	}
	o.sessions[req.SessionID] = ms
	o.mu.Unlock()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	o.applyTransition(ms.state, proto.PhaseScoping, proto.TriggerUserAction)

	tier := o.assessor.AssessInitial(req.InterviewType, req.Level)
	strategy := complexity.SelectStrategy(tier)
	state.Complexity = tier
	state.Strategy = strategy
	o.sink.RecordAssessment(req.SessionID, tier.String(), strategy.String())
	o.logger.Info("session %s started: %s %s -> %s/%s", req.SessionID, req.InterviewType, req.Level, tier, strategy)

	if req.Resume != "" || req.JobDescription != "" {
		msg := proto.NewAgentMessage(proto.MsgTypeContextExtraction, proto.AgentOrchestrator, proto.AgentContext, req.SessionID)
		msg.SetPayload(proto.KeyResume, req.Resume)
		msg.SetPayload(proto.KeyJobDescription, req.JobDescription)
		o.send(proto.AgentContext, msg)
	}

	question := proto.NewAgentMessage(proto.MsgTypeGenerateQuestion, proto.AgentOrchestrator, proto.AgentInterviewer, req.SessionID)
	question.SetPayload(proto.KeyInterviewType, req.InterviewType)
	question.SetPayload(proto.KeyLevel, req.Level)
	question.SetPayload(proto.KeyNewPhase, state.CurrentPhase.String())
	question.SetPayload(proto.KeyComplexity, tier.String())
	question.SetPayload(proto.KeyStrategy, strategy.String())
	o.send(proto.AgentInterviewer, question)

	return StartResult{
		SessionID:  req.SessionID,
		Phase:      state.CurrentPhase,
		Complexity: tier,
		Strategy:   strategy,
	}, nil
}

// ResponseResult reports what happened to a candidate response.
type ResponseResult struct {
	Action   string
	NewPhase proto.Phase // set when Action is ActionPhaseTransition
}

// HandleUserResponse records a candidate answer, requests scoring from the
// Evaluator, and applies a semantic phase transition when one is both
// detected and valid. An invalid detection is logged and the session
// continues in its current phase.
func (o *Orchestrator) HandleUserResponse(ctx context.Context, sessionID, response string, responseTime time.Time) (ResponseResult, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return ResponseResult{}, err
	}
	if responseTime.IsZero() {
		responseTime = o.now()
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	state := ms.state
	state.RecordResponse(response, responseTime)

	evaluate := proto.NewAgentMessage(proto.MsgTypeEvaluateResponse, proto.AgentOrchestrator, proto.AgentEvaluator, sessionID)
	evaluate.SetPayload(proto.KeyResponse, response)
	evaluate.SetPayload(proto.KeyNewPhase, state.CurrentPhase.String())
	evaluate.SetPayload(proto.KeyInterviewType, state.Context.InterviewType)
	o.send(proto.AgentEvaluator, evaluate)

	target, detected := o.detector.Detect(state.CurrentPhase, response)
	if !detected {
		return ResponseResult{Action: ActionContinueCurrentPhase}, nil
	}
	if !o.machine.CanTransition(state.CurrentPhase, target) {
		o.logger.Warn("session %s: detected transition %s -> %s is invalid, staying put",
			sessionID, state.CurrentPhase, target)
		return ResponseResult{Action: ActionContinueCurrentPhase}, nil
	}

	o.applyTransition(state, target, proto.TriggerSemantic)
	return ResponseResult{Action: ActionPhaseTransition, NewPhase: target}, nil
}

// HandleAgentMessage routes one collaborator reply. Unknown sessions and
// unknown types are logged no-ops since late or racing messages are
// expected. Used as the handler for the orchestrator's mailbox dispatcher.
func (o *Orchestrator) HandleAgentMessage(msg *proto.AgentMessage) {
	ms, err := o.lookup(msg.SessionID)
	if err != nil {
		o.logger.Warn("dropping %s message for unknown session %s", msg.Type, msg.SessionID)
		return
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	switch msg.Type {
	case proto.MsgTypeContextReady:
		o.mergeContext(ms.state, msg)
	case proto.MsgTypeResponseScored:
		o.mergeScores(ms.state, msg)
	case proto.MsgTypeQuestionGenerated:
		if question, ok := msg.GetPayloadString(proto.KeyQuestion); ok {
			ms.state.LastQuestion = question
		}
	case proto.MsgTypeReportReady:
		if report, ok := msg.GetPayloadString(proto.KeyReport); ok {
			o.logger.Info("session %s report ready (%d chars)", msg.SessionID, len(report))
		}
		if o.machine.CanTransition(ms.state.CurrentPhase, proto.PhaseEnd) {
			o.applyTransition(ms.state, proto.PhaseEnd, proto.TriggerAgentAction)
		}
	default:
		o.logger.Warn("dropping unhandled %s message for session %s", msg.Type, msg.SessionID)
	}
}

// GetSessionState returns a deep-copied snapshot of one session.
func (o *Orchestrator) GetSessionState(sessionID string) (*session.State, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.Snapshot(), nil
}

// GetSessionMetrics returns monitoring metrics for one session.
func (o *Orchestrator) GetSessionMetrics(sessionID string) (session.Metrics, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return session.Metrics{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.MetricsAt(o.now()), nil
}

// AdvancePhase applies a caller-directed transition, for flows the semantic
// detector does not cover (entering CHALLENGING or REPORT_GENERATION on the
// interviewer's schedule). Invalid targets are logged and reported as a
// continue action, never an error.
func (o *Orchestrator) AdvancePhase(sessionID string, target proto.Phase) (ResponseResult, error) {
	ms, err := o.lookup(sessionID)
	if err != nil {
		return ResponseResult{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !o.machine.CanTransition(ms.state.CurrentPhase, target) {
		o.logger.Warn("session %s: directed transition %s -> %s is invalid, staying put",
			sessionID, ms.state.CurrentPhase, target)
		return ResponseResult{Action: ActionContinueCurrentPhase}, nil
	}

	o.applyTransition(ms.state, target, proto.TriggerUserAction)
	return ResponseResult{Action: ActionPhaseTransition, NewPhase: target}, nil
}

func (o *Orchestrator) lookup(sessionID string) (*managedSession, error) {
	o.mu.RLock()
	ms, exists := o.sessions[sessionID]
	o.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return ms, nil
}

// applyTransition commits a validated transition and fires the entered
// phase's side effects exactly once. Caller holds the session lock.
func (o *Orchestrator) applyTransition(state *session.State, target proto.Phase, trigger proto.Trigger) {
	from := state.CurrentPhase
	state.RecordTransition(target, trigger, o.now())
	o.sink.RecordTransition(proto.StateTransitionEvent{
		FromPhase: from,
		ToPhase:   target,
		Trigger:   trigger,
		SessionID: state.SessionID,
	})
	o.logger.Info("session %s: %s -> %s (%s)", state.SessionID, from, target, trigger)

	switch target {
	case proto.PhaseAnalysis:
		o.enterAnalysis(state)
	case proto.PhaseChallenging:
		o.enterChallenging(state)
	case proto.PhaseReportGeneration:
		o.enterReportGeneration(state)
	}
}

// enterAnalysis reassesses complexity from the candidate's latest response
// and pushes the updated phase, tier, and strategy to the Interviewer.
func (o *Orchestrator) enterAnalysis(state *session.State) {
	if state.LastUserResponse != "" {
		state.Complexity = o.assessor.AssessResponse(state.LastUserResponse)
		state.Strategy = complexity.SelectStrategy(state.Complexity)
		o.sink.RecordAssessment(state.SessionID, state.Complexity.String(), state.Strategy.String())
	}

	msg := proto.NewAgentMessage(proto.MsgTypePhaseUpdate, proto.AgentOrchestrator, proto.AgentInterviewer, state.SessionID)
	msg.SetPayload(proto.KeyNewPhase, proto.PhaseAnalysis.String())
	msg.SetPayload(proto.KeyComplexity, state.Complexity.String())
	msg.SetPayload(proto.KeyStrategy, state.Strategy.String())
	o.send(proto.AgentInterviewer, msg)
}

// enterChallenging targets the candidate's weakest competency, or "general"
// before any scores exist.
func (o *Orchestrator) enterChallenging(state *session.State) {
	challengeType := state.LowestCompetency()
	if challengeType == "" {
		challengeType = "general"
	}

	msg := proto.NewAgentMessage(proto.MsgTypeChallengeRequest, proto.AgentOrchestrator, proto.AgentInterviewer, state.SessionID)
	msg.SetPayload(proto.KeyChallengeType, challengeType)
	msg.SetPayload(proto.KeySessionHistory, timelineSummary(state))
	msg.SetPayload(proto.KeyCurrentScores, copyScores(state.Scores))
	o.send(proto.AgentInterviewer, msg)
}

func (o *Orchestrator) enterReportGeneration(state *session.State) {
	msg := proto.NewAgentMessage(proto.MsgTypeGenerateReport, proto.AgentOrchestrator, proto.AgentSynthesis, state.SessionID)
	msg.SetPayload(proto.KeySessionData, state.Snapshot())
	msg.SetPayload(proto.KeyFinalScores, copyScores(state.Scores))
	o.send(proto.AgentSynthesis, msg)
}

func (o *Orchestrator) mergeContext(state *session.State, msg *proto.AgentMessage) {
	if state.Context.Extra == nil {
		state.Context.Extra = make(map[string]string)
	}
	for key, value := range msg.Payload {
		if s, ok := value.(string); ok {
			state.Context.Extra[key] = s
		}
	}
	o.logger.Debug("session %s: context merged (%d keys)", state.SessionID, len(msg.Payload))
}

// mergeScores applies a response_scored payload last-write-wins, then runs
// the gating engine over the fresh snapshot.
func (o *Orchestrator) mergeScores(state *session.State, msg *proto.AgentMessage) {
	raw, ok := msg.GetPayload(proto.KeyScores)
	if !ok {
		o.logger.Warn("session %s: response_scored without scores payload", state.SessionID)
		return
	}
	state.MergeScores(toScoreMap(raw))

	directive := o.gate.Evaluate(gating.Input{
		Phase:        state.CurrentPhase,
		Scores:       copyScores(state.Scores),
		LastResponse: state.LastUserResponse,
	})
	if directive == nil {
		return
	}

	state.AppendIntervention(*directive)
	o.sink.RecordIntervention(state.SessionID, directive.Type)
	o.logger.Info("session %s: intervention %s", state.SessionID, directive.Type)

	forward := proto.NewAgentMessage(proto.MsgTypeIntervention, proto.AgentOrchestrator, proto.AgentInterviewer, state.SessionID)
	forward.SetPayload(proto.KeyInterventionType, string(directive.Type))
	forward.SetPayload(proto.KeyIntervention, directive.Message)
	o.send(proto.AgentInterviewer, forward)
}

// send routes an outbound message through the recipient's circuit breaker.
// An open circuit or send failure degrades gracefully: the event is logged
// and the user-facing call proceeds on local state.
func (o *Orchestrator) send(agent string, msg *proto.AgentMessage) {
	err := o.breakers.Execute(agent, "send", func() error {
		return o.comm.Send(msg)
	})
	if err == nil {
		return
	}

	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		o.sink.RecordBreakerOpen(agent, "send")
		o.logger.Warn("session %s: skipping %s to %s, circuit open", msg.SessionID, msg.Type, agent)
		return
	}
	o.logger.Error("session %s: send %s to %s failed: %v", msg.SessionID, msg.Type, agent, err)
}

func timelineSummary(state *session.State) []string {
	summary := make([]string, len(state.Timeline))
	for i, entry := range state.Timeline {
		summary[i] = fmt.Sprintf("%s@%s", entry.Phase, entry.Timestamp.UTC().Format(time.RFC3339))
	}
	return summary
}

func copyScores(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for competency, score := range scores {
		out[competency] = score
	}
	return out
}

// toScoreMap normalizes a scores payload. Values arrive as float64 from
// in-process senders and as json.Number-free any-maps after a JSON round
// trip through the event log.
func toScoreMap(raw any) map[string]float64 {
	switch v := raw.(type) {
	case map[string]float64:
		return v
	case map[string]any:
		out := make(map[string]float64, len(v))
		for key, value := range v {
			switch n := value.(type) {
			case float64:
				out[key] = n
			case int:
				out[key] = float64(n)
			}
		}
		return out
	default:
		return nil
	}
}

// SessionIDs lists known sessions, mainly for monitoring surfaces.
func (o *Orchestrator) SessionIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	return ids
}
