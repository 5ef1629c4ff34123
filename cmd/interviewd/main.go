// interviewd wires the interview orchestrator to its reference
// collaborators and runs a scripted demo session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"interviewcoach/pkg/archive"
	"interviewcoach/pkg/breaker"
	"interviewcoach/pkg/collab"
	"interviewcoach/pkg/comms"
	"interviewcoach/pkg/complexity"
	"interviewcoach/pkg/config"
	"interviewcoach/pkg/eventlog"
	"interviewcoach/pkg/fsm"
	"interviewcoach/pkg/gating"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/orchestrator"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/semantic"
	"interviewcoach/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "interviewd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logx.SetDebug(true)
	}
	logger := logx.NewLogger("interviewd")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Ambient plumbing: communicator, optional event log, breakers, metrics.
	var commOpts []comms.Option
	if cfg.SendLatency > 0 {
		commOpts = append(commOpts, comms.WithLatency(cfg.SendLatency))
	}
	if cfg.EventLogDir != "" {
		writer, err := eventlog.NewWriter(cfg.EventLogDir)
		if err != nil {
			return err
		}
		defer writer.Close()
		commOpts = append(commOpts, comms.WithRecorder(writer))
	}
	comm := comms.NewCommunicator(commOpts...)

	var store *archive.Store
	if cfg.ArchivePath != "" {
		var err error
		store, err = archive.Open(cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	sink := telemetry.NewPrometheusSink(prometheus.NewRegistry())

	orch, err := orchestrator.New(orchestrator.Deps{
		Machine:          fsm.New(),
		Assessor:         complexity.NewAssessor(cfg.Complexity),
		Detector:         semantic.NewDetector(cfg.Hints),
		Gate:             gating.NewEngine(cfg.Gating),
		Comm:             comm,
		Breakers:         breaker.NewRegistry(cfg.Breaker),
		Telemetry:        sink,
		DispatchInterval: cfg.DispatchInterval,
	})
	if err != nil {
		return err
	}

	agents := []*collab.Agent{
		collab.NewContextAgent(comm, cfg.DispatchInterval),
		collab.NewInterviewerAgent(comm, cfg.DispatchInterval, nil),
		collab.NewEvaluatorAgent(comm, cfg.DispatchInterval),
		collab.NewSynthesisAgent(comm, cfg.DispatchInterval, store),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orch.Start(ctx); err != nil {
		return err
	}
	for _, agent := range agents {
		if err := agent.Start(ctx); err != nil {
			return err
		}
	}
	logger.Info("orchestrator and %d collaborators running", len(agents))

	if err := runDemoSession(ctx, orch); err != nil {
		logger.Error("demo session failed: %v", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, agent := range agents {
		if err := agent.Stop(shutdownCtx); err != nil {
			logger.Error("stop %s: %v", agent.Name(), err)
		}
	}
	if err := orch.Stop(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// runDemoSession drives one scripted interview end to end.
func runDemoSession(ctx context.Context, orch *orchestrator.Orchestrator) error {
	logger := logx.NewLogger("demo")
	const sessionID = "demo-session"

	result, err := orch.StartInterview(ctx, orchestrator.StartRequest{
		SessionID:     sessionID,
		UserID:        "demo-user",
		InterviewType: "product sense",
		Level:         "L5",
		Resume:        "Led the payments checkout team; shipped a growth experiment platform.",
	})
	if err != nil {
		return err
	}
	logger.Info("started in %s (complexity %s, strategy %s)", result.Phase, result.Complexity, result.Strategy)

	script := []string{
		"Let me clarify the problem scope and goals before assuming anything.",
		"Now I'll move on to the users. The key user segments I see are power users and casual users.",
		"Given those pain points, my solution would prioritize onboarding improvements first for impact.",
		"Let me describe how we'd measure this: success metrics like conversion rate against a baseline.",
	}
	for _, response := range script {
		res, err := orch.HandleUserResponse(ctx, sessionID, response, time.Time{})
		if err != nil {
			return err
		}
		logger.Info("response handled: %s %s", res.Action, res.NewPhase)
		// Give collaborators a tick to reply before the next turn.
		time.Sleep(150 * time.Millisecond)
	}

	if _, err := orch.AdvancePhase(sessionID, proto.PhaseChallenging); err != nil {
		return err
	}
	if _, err := orch.AdvancePhase(sessionID, proto.PhaseReportGeneration); err != nil {
		return err
	}
	time.Sleep(300 * time.Millisecond)

	metrics, err := orch.GetSessionMetrics(sessionID)
	if err != nil {
		return err
	}
	logger.Info("demo complete: phase %s, %d transitions, %d interventions, avg score %.2f",
		metrics.CurrentPhase, metrics.TransitionCount, metrics.InterventionCount, metrics.AverageScore)
	return nil
}
