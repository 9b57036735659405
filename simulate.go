package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/config"
	"github.com/wricardo/mcp-training/vanroute/game/scene"
	"github.com/wricardo/mcp-training/vanroute/game/service"
	"github.com/wricardo/mcp-training/vanroute/game/session"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
)

// simulation is a program to play on a level without a browser.
type simulation struct {
	level     string
	program   []string
	speed     float64
	nightMode *bool
}

// runSimulation plays sim through the game service on a manual clock, then
// writes the run summary and every draw command the van produced.
func runSimulation(ctx context.Context, w io.Writer, configDir string, sim simulation) error {
	if len(sim.program) == 0 {
		return errors.New("program is required")
	}

	configManager, err := config.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	clock := animation.NewManualClock(time.Unix(0, 0))
	recorder := &scene.Recorder{}
	sessions := session.NewManager(
		session.WithGeometry(configManager.Geometry()),
		session.WithClock(clock),
		session.WithSinkFactory(func(string) scene.Sink { return recorder }),
	)
	game := service.NewGameService(sessions, configManager,
		service.WithClock(clock),
		service.WithPreferences(settings.NewManager(nil)),
	)

	info, err := game.CreateSession(ctx, sim.level, service.SessionOptions{
		Speed:     sim.speed,
		NightMode: sim.nightMode,
	})
	if err != nil {
		return err
	}

	result, err := game.Run(ctx, info.ID, sim.program, false)
	if err != nil {
		return err
	}
	elapsed := clock.Drain()

	fmt.Fprintf(w, "Level: %s (speed %g, night %v)\n", info.ConfigName, info.Speed, info.NightMode)
	fmt.Fprintf(w, "Executed %d/%d actions, score %+d, end (%d,%d) heading %s\n",
		result.ActionsExecuted, result.RequestedActions, result.ScoreDelta,
		result.EndPos.X, result.EndPos.Y, result.GameState.Heading)
	if result.StopReasonCode != "" {
		fmt.Fprintf(w, "Stopped: %s", result.StopReasonCode)
		if result.StoppedOnAction > 0 {
			fmt.Fprintf(w, " on action %d", result.StoppedOnAction)
		}
		fmt.Fprintln(w)
	}
	for _, step := range result.Steps {
		fmt.Fprintf(w, "  %2d. %-11s %-24s start %7.1fms  duration %6.1fms\n",
			step.Idx, step.Action, step.Maneuver, step.StartMs, step.DurationMs)
	}
	fmt.Fprintf(w, "Animation: %.1fms (clock advanced %s)\n\n", result.TotalDurationMs, elapsed)

	return recorder.WriteTimeline(w)
}
