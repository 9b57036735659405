package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/wricardo/mcp-training/vanroute/game/engine"
)

func levelConfig(layout []string, heading engine.Heading) *engine.GameConfig {
	cfg := engine.DefaultConfig()
	cfg.Layout = layout
	cfg.GridHeight = len(layout)
	cfg.GridWidth = len(layout[0])
	cfg.StartHeading = heading
	return cfg
}

// play runs program on a fresh engine for cfg and returns the final state.
func play(t *testing.T, cfg *engine.GameConfig, program []engine.Action) *engine.GameState {
	t.Helper()
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	outcomes, err := eng.RunProgram(program)
	if err != nil {
		t.Fatalf("RunProgram: %v", err)
	}
	for i, out := range outcomes {
		if !out.Success {
			t.Fatalf("action %d (%s) failed: %s", i+1, out.Action, out.Message)
		}
	}
	return eng.GetState()
}

func TestPlanner_StraightStreet(t *testing.T) {
	cfg := levelConfig([]string{"BBBBBB", "HRRRRD", "BBBBBB"}, engine.East)

	program, err := NewPlanner(engine.InitGameStateFromConfig(cfg)).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []engine.Action{engine.Forward, engine.Forward, engine.Forward, engine.Forward, engine.Forward}
	if !reflect.DeepEqual(program, want) {
		t.Errorf("Expected %v, got %v", want, program)
	}
}

func TestPlanner_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  *engine.GameConfig
	}{
		{"default level", engine.DefaultConfig()},
		{"facing away", levelConfig([]string{"BBBBBB", "DRRRHB", "BBBBBB"}, engine.East)},
		{"dead end first", levelConfig([]string{"BBBBB", "DRHRD", "BBBBB"}, engine.North)},
		{"corner", levelConfig([]string{"BBBB", "BRDB", "BHBB", "BBBB"}, engine.North)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := NewPlanner(engine.InitGameStateFromConfig(tt.cfg)).Plan()
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}

			state := play(t, tt.cfg, program)
			if !state.Victory {
				t.Errorf("Expected victory after %v, score %d", program, state.Score)
			}
		})
	}
}

func TestPlanner_DefaultLevelNearestFirst(t *testing.T) {
	program, err := NewPlanner(engine.InitGameStateFromConfig(engine.DefaultConfig())).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// The house at (5,1) is four squares ahead; the one at (4,3) comes second.
	first := []engine.Action{engine.Forward, engine.Forward, engine.Forward, engine.Forward}
	if len(program) < len(first) || !reflect.DeepEqual(program[:4], first) {
		t.Errorf("Expected program to start with %v, got %v", first, program)
	}
	if program[4] != engine.TurnAround {
		t.Errorf("Expected a turn around after the first delivery, got %s", program[4])
	}
}

func TestPlanner_SkipsDelivered(t *testing.T) {
	cfg := engine.DefaultConfig()
	state := engine.InitGameStateFromConfig(cfg)
	for _, row := range state.Grid {
		for _, cell := range row {
			if cell.Type == engine.Destination {
				state.VisitedDestinations[cell.ID] = true
			}
		}
	}

	program, err := NewPlanner(state).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(program) != 0 {
		t.Errorf("Expected empty program, got %v", program)
	}
}

func TestPlanner_Unreachable(t *testing.T) {
	cfg := levelConfig([]string{"BBBBBB", "DRHRCD", "BBBBBB"}, engine.West)

	program, err := NewPlanner(engine.InitGameStateFromConfig(cfg)).Plan()
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Expected ErrUnreachable, got %v", err)
	}

	want := []engine.Action{engine.Forward, engine.Forward}
	if !reflect.DeepEqual(program, want) {
		t.Errorf("Expected the reachable leg %v, got %v", want, program)
	}
}

func TestChunk(t *testing.T) {
	program := make([]engine.Action, 5)
	for i := range program {
		program[i] = engine.Forward
	}

	tests := []struct {
		size int
		want []int
	}{
		{2, []int{2, 2, 1}},
		{5, []int{5}},
		{10, []int{5}},
	}
	for _, tt := range tests {
		runs := chunk(program, tt.size)
		var got []int
		for _, run := range runs {
			got = append(got, len(run))
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("chunk(5, %d): expected %v, got %v", tt.size, tt.want, got)
		}
	}

	if runs := chunk(nil, 3); len(runs) != 0 {
		t.Errorf("Expected no runs for an empty program, got %v", runs)
	}
}
