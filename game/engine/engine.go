package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

// Engine provides the main interface for route puzzle operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	IsVictory() bool
	GetScore() int
	GetVanPosition() Position
	GetHeading() Heading

	// Actions
	Step(action Action, scale float64) (Outcome, error)
	RunProgram(program []Action) ([]Outcome, error)
	CanAdvance(action Action) bool
	GetPossibleActions() []Action

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	// Local view
	GetLocalView() []SurroundingCell

	// Destinations and objectives
	GetTotalDestinations() int
	GetVisitedDestinations() map[string]bool
	GetRemainingDestinations() int

	// Sprite placement
	StartPosition() animation.Position
	AnimationPosition() animation.Position
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with the built-in level
func NewEngineWithDefaults() *GameEngine {
	config := DefaultConfig()
	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if !state.Heading.valid() {
		return fmt.Errorf("state has invalid heading %q", state.Heading)
	}
	if state.VisitedDestinations == nil {
		state.VisitedDestinations = make(map[string]bool)
	}
	e.state = state
	return nil
}

// Reset resets the level to its initial state
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	e.state = InitGameStateFromConfig(e.config)

	// Restore cumulative history and totals; clear only the current segment
	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal
	e.state.CurrentMoves = []MoveHistoryEntry{}
	e.state.CurrentMovesCount = 0

	return e.state
}

// IsGameOver returns whether the run is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// IsVictory returns whether every destination was reached
func (e *GameEngine) IsVictory() bool {
	return e.state.Victory
}

// GetScore returns the number of destinations reached
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetVanPosition returns the current van position
func (e *GameEngine) GetVanPosition() Position {
	return e.state.VanPos
}

// GetHeading returns the direction the van faces
func (e *GameEngine) GetHeading() Heading {
	return e.state.Heading
}

// Step performs one action and records it in the history
func (e *GameEngine) Step(action Action, scale float64) (Outcome, error) {
	if e.config == nil {
		return Outcome{}, fmt.Errorf("engine has no config")
	}
	if scale < 0 {
		return Outcome{}, fmt.Errorf("scale cannot be negative: %v", scale)
	}

	out, err := e.state.Apply(action, scale, e.config)
	if err != nil {
		return Outcome{}, err
	}
	e.state.AddMoveToHistory(out)
	return out, nil
}

// RunProgram executes actions in order until one stops the program or the
// run ends. It returns the outcomes of the actions that ran.
func (e *GameEngine) RunProgram(program []Action) ([]Outcome, error) {
	if len(program) > MaxProgramLength {
		return nil, fmt.Errorf("program too long: %d actions (max %d)", len(program), MaxProgramLength)
	}

	outcomes := make([]Outcome, 0, len(program))
	for _, action := range program {
		if e.IsGameOver() {
			break
		}

		out, err := e.Step(action, 0)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
		if out.StopsProgram {
			break
		}
	}

	return outcomes, nil
}

// CanAdvance reports whether action would succeed from the current state
func (e *GameEngine) CanAdvance(action Action) bool {
	if e.state.GameOver {
		return false
	}

	switch action {
	case Forward:
		return e.state.CanDriveTo(e.state.VanPos.Add(e.state.Heading))
	case TurnLeft:
		return e.state.CanDriveTo(e.state.VanPos.Add(e.state.Heading.Left()))
	case TurnRight:
		return e.state.CanDriveTo(e.state.VanPos.Add(e.state.Heading.Right()))
	case TurnAround, Wait:
		return true
	}
	return false
}

// GetPossibleActions returns every action that would succeed
func (e *GameEngine) GetPossibleActions() []Action {
	var possible []Action
	for _, action := range AllActions {
		if e.CanAdvance(action) {
			possible = append(possible, action)
		}
	}
	return possible
}

// GetConfig returns the current level configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new level configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = InitGameStateFromConfig(config)
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// GetLocalView returns the local view around the van
func (e *GameEngine) GetLocalView() []SurroundingCell {
	return e.state.GenerateLocalView()
}

// GetTotalDestinations returns the number of destinations on the grid
func (e *GameEngine) GetTotalDestinations() int {
	return CountTotalDestinations(e.state.Grid)
}

// GetVisitedDestinations returns the map of reached destinations
func (e *GameEngine) GetVisitedDestinations() map[string]bool {
	return e.state.VisitedDestinations
}

// GetRemainingDestinations returns the number of destinations not yet reached
func (e *GameEngine) GetRemainingDestinations() int {
	return e.GetTotalDestinations() - len(e.state.VisitedDestinations)
}

// StartPosition is the sprite placement of the level's start cell
func (e *GameEngine) StartPosition() animation.Position {
	start := InitGameStateFromConfig(e.config)
	return start.AnimationPosition()
}

// AnimationPosition is the sprite placement of the van's current cell
func (e *GameEngine) AnimationPosition() animation.Position {
	return e.state.AnimationPosition()
}
