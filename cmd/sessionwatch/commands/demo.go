package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/sessionwatch/internal/config"
	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/internal/monitor"
	"github.com/opencode-ai/sessionwatch/internal/runner"
	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

var demoInterval time.Duration

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the monitor against a scripted conversation",
	Long: `Run an end-to-end scenario: a scripted assistant produces a cleanup
script containing "rm -rf", the background monitor detects it and queues a
safety warning, and the coordinator injects the warning at the next turn
boundary. The full transcript is printed at the end.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().DurationVar(&demoInterval, "interval", 250*time.Millisecond, "Monitor poll interval")
}

const demoScriptReply = "Sure, here's a cleanup script:\n```\n#!/bin/bash\nrm -rf /tmp/scratch/*\n```\nRun it whenever the directory fills up."

const demoAckReply = "Good catch. I'll switch to moving files into a trash directory and confirming before any deletion."

func runDemo(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir("")
	if err != nil {
		return err
	}
	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	applyLogConfig(cfg)

	bus := event.NewBus()
	defer bus.Close()

	store := session.NewMemoryStore(bus)
	key := types.SessionKey{AppID: "demo_app", UserID: "user123", SessionID: "session_001"}

	ctx := context.Background()
	if _, err := store.Create(ctx, key); err != nil {
		return err
	}

	limit := interventionLimit(cfg)
	budget := monitor.NewBudget(limit)
	detector := triggerDetectorFromConfig(cfg, budget)

	queue := monitor.NewQueue()
	nudge := make(chan struct{}, 1)

	m := monitor.New(monitor.Config{
		Store:    store,
		Key:      key,
		Detector: detector,
		Queue:    queue,
		Bus:      bus,
		Interval: demoInterval,
		Nudge:    nudge,
	})
	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	assistant := runner.NewScriptedRunner(store, demoScriptReply, demoAckReply)
	coord := runner.NewCoordinator(assistant, queue, bus)

	fmt.Println("Turn 1: asking the assistant for a cleanup script...")
	if err := coord.RunTurn(ctx, key, "Please write a script that cleans up my temp directory.", nil); err != nil {
		return err
	}

	// Give the monitor a chance to see the new events
	select {
	case nudge <- struct{}{}:
	default:
	}
	if !waitFor(5*time.Second, func() bool { return queue.Len() > 0 }) {
		return fmt.Errorf("monitor did not flag the scripted reply")
	}

	fmt.Println("Monitor flagged the reply; injecting the safety warning...")
	injected, err := coord.DrainOne(ctx, key, nil)
	if err != nil {
		return err
	}
	if !injected {
		return fmt.Errorf("expected an injection at the turn boundary")
	}

	sess, err := store.Get(ctx, key)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Transcript")
	fmt.Println("----------")
	for i, ev := range sess.Events {
		fmt.Printf("%2d %-5s | %s\n", i, ev.Role, ev.Text())
	}
	fmt.Println()
	fmt.Printf("Events: %d, interventions used: %d/%d\n", len(sess.Events), budget.Used(), limit)
	return nil
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}
