package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrRunOver       = errors.New("run is over")
)

// CellType represents different types of grid cells
type CellType string

const (
	Road        CellType = "road"
	Start       CellType = "start"
	Destination CellType = "destination"
	Obstacle    CellType = "obstacle"
	Building    CellType = "building"

	// Validation constants
	MinGridSize         = 2
	MaxGridSize         = 50
	MaxProgramLength    = 200
	UnreachableDistance = 999999
	WebSocketBufferSize = 256
)

// IsRoad reports whether the van can drive onto the cell.
func (c CellType) IsRoad() bool {
	return c == Road || c == Start || c == Destination
}

// Cell represents a single grid cell
type Cell struct {
	Type    CellType `json:"type"`
	Visited bool     `json:"visited,omitempty"` // For destinations
	ID      string   `json:"id,omitempty"`      // Unique ID for destinations
}

// Position is a grid coordinate. Y grows upwards: y=0 is the bottom row of the layout.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the neighbour of p one step along h.
func (p Position) Add(h Heading) Position {
	dx, dy := h.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node converts p to the animation package's grid node.
func (p Position) Node() animation.Node {
	return animation.Node{X: p.X, Y: p.Y}
}

// Heading is the compass direction the van faces.
type Heading string

const (
	North Heading = "N"
	East  Heading = "E"
	South Heading = "S"
	West  Heading = "W"
)

// ParseHeading accepts N/E/S/W or the full names, in any case.
func ParseHeading(s string) (Heading, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH":
		return North, nil
	case "E", "EAST":
		return East, nil
	case "S", "SOUTH":
		return South, nil
	case "W", "WEST":
		return West, nil
	}
	return "", fmt.Errorf("invalid heading %q", s)
}

// Delta returns the grid offset of one step along h.
func (h Heading) Delta() (int, int) {
	switch h {
	case North:
		return 0, 1
	case East:
		return 1, 0
	case South:
		return 0, -1
	case West:
		return -1, 0
	}
	return 0, 0
}

func (h Heading) Left() Heading {
	switch h {
	case North:
		return West
	case West:
		return South
	case South:
		return East
	}
	return North
}

func (h Heading) Right() Heading {
	switch h {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	}
	return North
}

func (h Heading) Opposite() Heading {
	return h.Left().Left()
}

func (h Heading) valid() bool {
	switch h {
	case North, East, South, West:
		return true
	}
	return false
}

// Action is one instruction of a van program.
type Action string

const (
	Forward    Action = "forward"
	TurnLeft   Action = "turn_left"
	TurnRight  Action = "turn_right"
	TurnAround Action = "turn_around"
	Wait       Action = "wait"
)

// AllActions lists the actions in the order they are reported.
var AllActions = []Action{Forward, TurnLeft, TurnRight, TurnAround, Wait}

// ParseAction accepts action names in any case, with a few common aliases.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "move_forward", "f":
		return Forward, nil
	case "turn_left", "left", "l":
		return TurnLeft, nil
	case "turn_right", "right", "r":
		return TurnRight, nil
	case "turn_around", "around", "u":
		return TurnAround, nil
	case "wait", "w":
		return Wait, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// ParseProgram parses a list of action names.
func ParseProgram(names []string) ([]Action, error) {
	if len(names) > MaxProgramLength {
		return nil, fmt.Errorf("program too long: %d actions (max %d)", len(names), MaxProgramLength)
	}
	program := make([]Action, 0, len(names))
	for i, name := range names {
		a, err := ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		program = append(program, a)
	}
	return program, nil
}

// Messages are the texts shown to the player.
type Messages struct {
	Welcome   string `json:"welcome"`
	Moved     string `json:"moved"`
	Delivered string `json:"delivered"`
	Victory   string `json:"victory"`
	Crashed   string `json:"crashed"`
	Collided  string `json:"collided"`
	RunOver   string `json:"run_over"`
}

// GameConfig represents the level configuration from JSON
type GameConfig struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	GridWidth    int               `json:"grid_width"`
	GridHeight   int               `json:"grid_height"`
	Layout       []string          `json:"layout"`
	Legend       map[string]string `json:"legend"`
	StartHeading Heading           `json:"start_heading"`
	Speed        float64           `json:"speed,omitempty"`
	NightMode    bool              `json:"night_mode,omitempty"`
	CrashEndsRun bool              `json:"crash_ends_run"`
	Messages     Messages          `json:"messages"`
}

// SurroundingCell represents a cell with its absolute position
type SurroundingCell struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Type CellType `json:"type"`
}

// GameState represents the complete game state
type GameState struct {
	// Grid rows are stored top to bottom, as in the layout.
	Grid                [][]Cell           `json:"grid"`
	VanPos              Position           `json:"van_pos"`
	Heading             Heading            `json:"heading"`
	Score               int                `json:"score"`
	VisitedDestinations map[string]bool    `json:"visited_destinations"`
	Message             string             `json:"message"`
	GameOver            bool               `json:"game_over"`
	Victory             bool               `json:"victory"`
	Crashed             bool               `json:"crashed"`
	ConfigName          string             `json:"config_name"`
	MoveHistory         []MoveHistoryEntry `json:"move_history"`
	TotalMoves          int                `json:"total_moves"`
	LocalView           []SurroundingCell  `json:"local_view,omitempty"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// MoveHistoryEntry represents a single action in the game history
type MoveHistoryEntry struct {
	Action        Action   `json:"action"`
	FromPosition  Position `json:"from_position"`
	ToPosition    Position `json:"to_position"`
	HeadingBefore Heading  `json:"heading_before"`
	HeadingAfter  Heading  `json:"heading_after"`
	Maneuver      string   `json:"maneuver"`
	Timestamp     int64    `json:"timestamp"`
	Success       bool     `json:"success"`
	MoveNumber    int      `json:"move_number"`
}

// Outcome is the result of one action: what happened on the grid and the
// maneuver that animates it.
type Outcome struct {
	Action        Action             `json:"action"`
	Success       bool               `json:"success"`
	Maneuver      animation.Maneuver `json:"maneuver"`
	From          Position           `json:"from"`
	To            Position           `json:"to"`
	HeadingBefore Heading            `json:"heading_before"`
	HeadingAfter  Heading            `json:"heading_after"`
	Message       string             `json:"message"`
	// StopsProgram is set after a crash or collision; later actions are not run.
	StopsProgram bool `json:"stops_program,omitempty"`
}
