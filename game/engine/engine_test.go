package engine

import (
	"errors"
	"testing"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

// createTestConfig returns a 6x5 level:
//
//	y=4  BBBBBB
//	y=3  BRRRDB
//	y=2  BRBBCB
//	y=1  BHRRRD
//	y=0  BBBBBB
func createTestConfig() *GameConfig {
	config := DefaultConfig()
	config.Name = "Engine Test Config"
	config.Description = "Configuration for engine integration tests"
	config.Messages.Moved = "Moved"
	return config
}

func newTestEngine(t *testing.T, config *GameConfig) *GameEngine {
	t.Helper()
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func mustStep(t *testing.T, e *GameEngine, action Action) Outcome {
	t.Helper()
	out, err := e.Step(action, 0)
	if err != nil {
		t.Fatalf("Step(%s) failed: %v", action, err)
	}
	return out
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	engine := newTestEngine(t, config)

	if got := engine.GetVanPosition(); got != (Position{X: 1, Y: 1}) {
		t.Errorf("Expected start (1,1), got %+v", got)
	}
	if engine.GetHeading() != East {
		t.Errorf("Expected heading E, got %s", engine.GetHeading())
	}
	if engine.GetScore() != 0 {
		t.Errorf("Expected initial score 0, got %d", engine.GetScore())
	}
	if engine.IsGameOver() || engine.IsVictory() {
		t.Error("Expected a fresh run")
	}
	if engine.GetState().Message != config.Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", engine.GetState().Message)
	}
	if engine.GetTotalDestinations() != 2 {
		t.Errorf("Expected 2 destinations, got %d", engine.GetTotalDestinations())
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Name = ""

	if _, err := NewEngine(config); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestNewEngineWithDefaults(t *testing.T) {
	engine := NewEngineWithDefaults()
	if engine == nil {
		t.Fatal("Expected engine to be non-nil")
	}
	if engine.GetConfig() == nil {
		t.Fatal("Expected the default config")
	}
	if _, err := engine.Step(Forward, 0); err != nil {
		t.Errorf("Default engine should be playable: %v", err)
	}
}

func TestEngine_Forward(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	out := mustStep(t, engine, Forward)
	if !out.Success {
		t.Fatalf("Expected success, got %+v", out)
	}
	if out.Maneuver.Kind != animation.KindMoveForward {
		t.Errorf("Expected move_forward maneuver, got %s", out.Maneuver)
	}
	if out.From != (Position{X: 1, Y: 1}) || out.To != (Position{X: 2, Y: 1}) {
		t.Errorf("Unexpected move %+v -> %+v", out.From, out.To)
	}
	if len(engine.GetMoveHistory()) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(engine.GetMoveHistory()))
	}

	scaled, err := engine.Step(Forward, 2)
	if err != nil {
		t.Fatal(err)
	}
	if scaled.Maneuver.Scale != 2 {
		t.Errorf("Expected scale to be carried into the maneuver, got %v", scaled.Maneuver.Scale)
	}

	if _, err := engine.Step(Forward, -1); err == nil {
		t.Error("Expected error for negative scale")
	}
}

func TestEngine_Turns(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	out := mustStep(t, engine, TurnLeft)
	if !out.Success || out.Maneuver.Kind != animation.KindTurnLeft {
		t.Fatalf("Expected a left turn, got %+v", out)
	}
	if out.To != (Position{X: 1, Y: 2}) || out.HeadingAfter != North {
		t.Errorf("Expected (1,2) facing N, got %+v facing %s", out.To, out.HeadingAfter)
	}

	mustStep(t, engine, Forward)
	out = mustStep(t, engine, TurnRight)
	if !out.Success || out.Maneuver.Kind != animation.KindTurnRight {
		t.Fatalf("Expected a right turn, got %+v", out)
	}
	if out.To != (Position{X: 2, Y: 3}) || out.HeadingAfter != East {
		t.Errorf("Expected (2,3) facing E, got %+v facing %s", out.To, out.HeadingAfter)
	}
}

func TestEngine_Crash(t *testing.T) {
	t.Run("crash stops the program", func(t *testing.T) {
		engine := newTestEngine(t, createTestConfig())

		out := mustStep(t, engine, TurnRight)
		if out.Success {
			t.Fatal("Turning right into a building should fail")
		}
		want := animation.Maneuver{Kind: animation.KindCrash, Attempted: animation.ActionTurnRight}
		if out.Maneuver != want {
			t.Errorf("Expected %s, got %s", want, out.Maneuver)
		}
		if !out.StopsProgram {
			t.Error("Crash should stop the program")
		}
		if engine.GetVanPosition() != out.From || engine.GetHeading() != East {
			t.Error("Van should stay where it was")
		}
		if !engine.GetState().Crashed {
			t.Error("State should record the crash")
		}
		if engine.IsGameOver() {
			t.Error("Crash should not end the run unless configured")
		}
	})

	t.Run("crash ends the run", func(t *testing.T) {
		config := createTestConfig()
		config.CrashEndsRun = true
		engine := newTestEngine(t, config)

		mustStep(t, engine, TurnRight)
		if !engine.IsGameOver() {
			t.Fatal("Expected the run to be over")
		}
		if _, err := engine.Step(Forward, 0); !errors.Is(err, ErrRunOver) {
			t.Errorf("Expected ErrRunOver, got %v", err)
		}
	})

	t.Run("driving off the grid", func(t *testing.T) {
		engine := newTestEngine(t, createTestConfig())
		for i := 0; i < 4; i++ {
			mustStep(t, engine, Forward)
		}
		// (5,1) is on the east edge.
		out := mustStep(t, engine, Forward)
		if out.Maneuver.Kind != animation.KindCrash || out.Maneuver.Attempted != animation.ActionForward {
			t.Errorf("Expected a forward crash, got %s", out.Maneuver)
		}
	})
}

func TestEngine_ObstacleCollision(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	program := []Action{TurnLeft, Forward, TurnRight, Forward, Forward}
	for _, a := range program {
		mustStep(t, engine, a)
	}
	if engine.GetScore() != 1 {
		t.Fatalf("Expected the first delivery, got score %d", engine.GetScore())
	}

	out := mustStep(t, engine, TurnRight)
	want := animation.Maneuver{Kind: animation.KindCollideWithObstacle, Attempted: animation.ActionTurnRight}
	if out.Maneuver != want {
		t.Errorf("Expected %s, got %s", want, out.Maneuver)
	}
	if !out.StopsProgram || out.Success {
		t.Errorf("Collision should fail and stop the program, got %+v", out)
	}
	if engine.GetState().Crashed {
		t.Error("A collision is not a crash")
	}
	if engine.GetVanPosition() != (Position{X: 4, Y: 3}) {
		t.Errorf("Van should stay at (4,3), got %+v", engine.GetVanPosition())
	}
}

func TestEngine_TurnAroundVariants(t *testing.T) {
	tests := []struct {
		name    string
		pos     Position
		heading Heading
		want    animation.Direction
	}{
		{"road ahead", Position{X: 1, Y: 1}, East, animation.DirectionForward},
		{"side road on the right", Position{X: 1, Y: 1}, West, animation.DirectionRight},
		{"side road on the left", Position{X: 1, Y: 1}, South, animation.DirectionLeft},
		{"dead end", Position{X: 4, Y: 3}, East, animation.DirectionForward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, createTestConfig())
			state := engine.GetState()
			state.VanPos = tt.pos
			state.Heading = tt.heading

			out := mustStep(t, engine, TurnAround)
			if out.Maneuver.Kind != animation.KindTurnAround || out.Maneuver.Direction != tt.want {
				t.Errorf("Expected turn_around(%s), got %s", tt.want, out.Maneuver)
			}
			if out.HeadingAfter != tt.heading.Opposite() {
				t.Errorf("Expected heading %s, got %s", tt.heading.Opposite(), out.HeadingAfter)
			}
			if out.To != tt.pos {
				t.Error("Turning around should not change cell")
			}
		})
	}
}

func TestEngine_Wait(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())
	out := mustStep(t, engine, Wait)
	if !out.Success || out.Maneuver.Kind != animation.KindWait {
		t.Errorf("Expected a wait, got %+v", out)
	}
	if out.From != out.To {
		t.Error("Waiting should not move the van")
	}
}

func TestEngine_RunProgramVictory(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	program, err := ParseProgram([]string{
		"forward", "forward", "forward", "forward",
		"turn_around",
		"forward", "forward", "forward", "forward",
		"turn_right", "forward", "turn_right", "forward", "forward",
	})
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}

	outcomes, err := engine.RunProgram(program)
	if err != nil {
		t.Fatalf("RunProgram failed: %v", err)
	}
	if len(outcomes) != len(program) {
		t.Errorf("Expected %d outcomes, got %d", len(program), len(outcomes))
	}
	if !engine.IsVictory() || !engine.IsGameOver() {
		t.Errorf("Expected victory, state: %+v", engine.GetState().Message)
	}
	if engine.GetScore() != 2 {
		t.Errorf("Expected score 2, got %d", engine.GetScore())
	}
	if engine.GetRemainingDestinations() != 0 {
		t.Errorf("Expected no remaining destinations, got %d", engine.GetRemainingDestinations())
	}
}

func TestEngine_RunProgramStopsAtCrash(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	outcomes, err := engine.RunProgram([]Action{Forward, TurnRight, Forward})
	if err != nil {
		t.Fatalf("RunProgram failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("Expected the program to stop after the crash, got %d outcomes", len(outcomes))
	}
	if outcomes[1].Maneuver.Kind != animation.KindCrash {
		t.Errorf("Expected the second outcome to be a crash, got %s", outcomes[1].Maneuver)
	}
}

func TestEngine_Reset(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	mustStep(t, engine, Forward)
	mustStep(t, engine, TurnRight)

	state := engine.Reset()
	if state.VanPos != (Position{X: 1, Y: 1}) || state.Heading != East {
		t.Errorf("Expected start position after reset, got %+v %s", state.VanPos, state.Heading)
	}
	if state.Crashed {
		t.Error("Reset should clear the crash")
	}
	if state.TotalMoves != 2 || len(state.MoveHistory) != 2 {
		t.Errorf("Cumulative history should survive reset, got %d", state.TotalMoves)
	}
	if state.CurrentMovesCount != 0 || len(state.CurrentMoves) != 0 {
		t.Error("Current segment should be cleared")
	}
}

func TestEngine_PossibleActions(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	got := engine.GetPossibleActions()
	want := []Action{Forward, TurnLeft, TurnAround, Wait}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}

func TestEngine_AnimationPosition(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	start := engine.StartPosition()
	want := animation.Position{Previous: animation.Node{X: 0, Y: 1}, Current: animation.Node{X: 1, Y: 1}}
	if start != want {
		t.Errorf("Expected %+v, got %+v", want, start)
	}

	mustStep(t, engine, TurnLeft)
	pos := engine.AnimationPosition()
	if pos.Current != (animation.Node{X: 1, Y: 2}) || pos.Previous != (animation.Node{X: 1, Y: 1}) {
		t.Errorf("Unexpected placement after a left turn: %+v", pos)
	}
	if engine.StartPosition() != want {
		t.Error("Start position should not follow the van")
	}
}

func TestEngine_SetState(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())

	if err := engine.SetState(nil); err == nil {
		t.Error("Expected error for nil state")
	}
	bad := InitGameStateFromConfig(createTestConfig())
	bad.Heading = "X"
	if err := engine.SetState(bad); err == nil {
		t.Error("Expected error for invalid heading")
	}

	good := InitGameStateFromConfig(createTestConfig())
	good.VisitedDestinations = nil
	if err := engine.SetState(good); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if engine.GetVisitedDestinations() == nil {
		t.Error("Visited map should be initialised")
	}
}

func TestEngine_LastMove(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())
	if engine.GetLastMove() != nil {
		t.Error("Expected no last move")
	}

	mustStep(t, engine, TurnLeft)
	last := engine.GetLastMove()
	if last == nil {
		t.Fatal("Expected a last move")
	}
	if last.Action != TurnLeft || last.Maneuver != "turn_left" || last.MoveNumber != 1 {
		t.Errorf("Unexpected history entry %+v", last)
	}
	if last.HeadingBefore != East || last.HeadingAfter != North {
		t.Errorf("Unexpected headings %s -> %s", last.HeadingBefore, last.HeadingAfter)
	}
}
