package comms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/proto"
)

// Handler processes one delivered message.
type Handler func(msg *proto.AgentMessage)

// Dispatcher polls one recipient's mailbox on a fixed interval and hands
// each message to the handler. Instances are created per consumer; there is
// no shared global loop.
type Dispatcher struct {
	logger    *logx.Logger
	comm      *Communicator
	recipient string
	handler   Handler
	interval  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewDispatcher creates a dispatcher for one recipient. The interval is
// injectable so tests can run fast.
func NewDispatcher(comm *Communicator, recipient string, interval time.Duration, handler Handler) *Dispatcher {
	return &Dispatcher{
		logger:    logx.NewLogger("dispatch-" + recipient),
		comm:      comm,
		recipient: recipient,
		handler:   handler,
		interval:  interval,
	}
}

// Start launches the polling loop. Calling Start on a running dispatcher is
// an error.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("dispatcher for %s already running", d.recipient)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.stopped = make(chan struct{})
	d.running = true

	go d.loop(loopCtx, d.stopped)

	d.logger.Info("dispatcher started for %s (interval %s)", d.recipient, d.interval)
	return nil
}

// Stop halts the loop and waits for it to exit or for ctx to expire.
// Stopping an idle dispatcher is a no-op.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel := d.cancel
	stopped := d.stopped
	d.mu.Unlock()

	cancel()

	select {
	case <-stopped:
		d.logger.Info("dispatcher stopped for %s", d.recipient)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher stop timed out for %s: %w", d.recipient, ctx.Err())
	}
}

func (d *Dispatcher) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final drain so messages queued before Stop are not lost.
			d.drain()
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

func (d *Dispatcher) drain() {
	for _, msg := range d.comm.Receive(d.recipient) {
		d.deliver(msg)
	}
}

// deliver runs the handler with panic recovery so one bad message cannot
// kill the loop.
func (d *Dispatcher) deliver(msg *proto.AgentMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic on %s message %s: %v", msg.Type, msg.ID, r)
		}
	}()
	d.handler(msg)
}
