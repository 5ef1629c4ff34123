// Package comms provides in-process message passing between the orchestrator
// and its collaborator agents: per-recipient FIFO mailboxes plus a stoppable
// dispatcher that drains them on a fixed tick.
package comms

import (
	"fmt"
	"sync"
	"time"

	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/proto"
)

// Recorder receives a copy of every message accepted by Send. Used to hook
// the event log in without coupling comms to storage.
type Recorder interface {
	Record(msg *proto.AgentMessage)
}

// Communicator routes messages to named recipient mailboxes. Send and
// Receive are safe for concurrent use.
type Communicator struct {
	logger   *logx.Logger
	latency  time.Duration // optional simulated delivery delay
	recorder Recorder

	mu        sync.Mutex
	mailboxes map[string][]*proto.AgentMessage
}

// Option configures a Communicator.
type Option func(*Communicator)

// WithLatency makes Send sleep before enqueueing, approximating network
// delivery delay for demos and resilience tests.
func WithLatency(d time.Duration) Option {
	return func(c *Communicator) { c.latency = d }
}

// WithRecorder registers a hook that sees every accepted message.
func WithRecorder(r Recorder) Option {
	return func(c *Communicator) { c.recorder = r }
}

// NewCommunicator creates a communicator with empty mailboxes.
func NewCommunicator(opts ...Option) *Communicator {
	c := &Communicator{
		logger:    logx.NewLogger("comms"),
		mailboxes: make(map[string][]*proto.AgentMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send validates the message and appends it to the recipient's mailbox.
func (c *Communicator) Send(msg *proto.AgentMessage) error {
	if msg == nil {
		return fmt.Errorf("send: nil message")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if c.latency > 0 {
		time.Sleep(c.latency)
	}

	c.mu.Lock()
	c.mailboxes[msg.ToAgent] = append(c.mailboxes[msg.ToAgent], msg)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Record(msg)
	}

	c.logger.Debug("queued %s from %s to %s (session %s)", msg.Type, msg.FromAgent, msg.ToAgent, msg.SessionID)
	return nil
}

// Receive atomically drains and returns the recipient's mailbox in FIFO
// order. An empty mailbox yields an empty slice.
func (c *Communicator) Receive(recipient string) []*proto.AgentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.mailboxes[recipient]
	if len(msgs) == 0 {
		return nil
	}
	delete(c.mailboxes, recipient)
	return msgs
}

// Pending reports how many messages are queued for a recipient.
func (c *Communicator) Pending(recipient string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mailboxes[recipient])
}
