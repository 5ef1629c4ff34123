// Package collab provides deterministic reference implementations of the
// collaborator agents (Context, Interviewer, Evaluator, Synthesis). They
// reply from templates and keyword heuristics only; each runs its own
// mailbox dispatcher and answers the orchestrator over the same
// communicator.
package collab

import (
	"context"
	"time"

	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/proto"
)

// Agent is one running collaborator.
type Agent struct {
	name       string
	logger     *logx.Logger
	comm       *comms.Communicator
	dispatcher *comms.Dispatcher
}

func newAgent(name string, comm *comms.Communicator, interval time.Duration, handler comms.Handler) *Agent {
	a := &Agent{
		name:   name,
		logger: logx.NewLogger(name),
		comm:   comm,
	}
	a.dispatcher = comms.NewDispatcher(comm, name, interval, handler)
	return a
}

// Name returns the agent's mailbox name.
func (a *Agent) Name() string { return a.name }

// Start begins polling the agent's mailbox.
func (a *Agent) Start(ctx context.Context) error {
	return a.dispatcher.Start(ctx)
}

// Stop halts the agent's dispatcher.
func (a *Agent) Stop(ctx context.Context) error {
	return a.dispatcher.Stop(ctx)
}

// reply sends a message back to the orchestrator, logging send failures.
func (a *Agent) reply(msgType proto.MsgType, sessionID string, payload map[string]any) {
	msg := proto.NewAgentMessage(msgType, a.name, proto.AgentOrchestrator, sessionID)
	for key, value := range payload {
		msg.SetPayload(key, value)
	}
	if err := a.comm.Send(msg); err != nil {
		a.logger.Error("session %s: reply %s failed: %v", sessionID, msgType, err)
	}
}
