package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
)

// Height returns the number of grid rows.
func (gs *GameState) Height() int {
	return len(gs.Grid)
}

// Width returns the number of grid columns.
func (gs *GameState) Width() int {
	if len(gs.Grid) == 0 {
		return 0
	}
	return len(gs.Grid[0])
}

// InBounds reports whether p lies on the grid.
func (gs *GameState) InBounds(p Position) bool {
	return p.X >= 0 && p.X < gs.Width() && p.Y >= 0 && p.Y < gs.Height()
}

// CellAt returns the cell at p; out of bounds cells are buildings.
func (gs *GameState) CellAt(p Position) *Cell {
	if !gs.InBounds(p) {
		return &Cell{Type: Building}
	}
	return &gs.Grid[gs.Height()-1-p.Y][p.X]
}

// CanDriveTo reports whether the van can enter p.
func (gs *GameState) CanDriveTo(p Position) bool {
	return gs.InBounds(p) && gs.CellAt(p).Type.IsRoad()
}

// AnimationPosition is the van's position as a sprite placement: the current
// node and the node behind it, so the sprite faces the heading.
func (gs *GameState) AnimationPosition() animation.Position {
	return animation.Position{
		Previous: gs.VanPos.Add(gs.Heading.Opposite()).Node(),
		Current:  gs.VanPos.Node(),
	}
}

// Apply performs action and returns its outcome. A positive scale is carried
// into the forward or turn maneuver.
func (gs *GameState) Apply(action Action, scale float64, config *GameConfig) (Outcome, error) {
	if gs.GameOver {
		return Outcome{}, ErrRunOver
	}

	out := Outcome{
		Action:        action,
		From:          gs.VanPos,
		To:            gs.VanPos,
		HeadingBefore: gs.Heading,
		HeadingAfter:  gs.Heading,
	}

	switch action {
	case Forward:
		gs.drive(&out, gs.Heading, animation.ActionForward, animation.KindMoveForward, scale, config)
	case TurnLeft:
		gs.drive(&out, gs.Heading.Left(), animation.ActionTurnLeft, animation.KindTurnLeft, scale, config)
	case TurnRight:
		gs.drive(&out, gs.Heading.Right(), animation.ActionTurnRight, animation.KindTurnRight, scale, config)
	case TurnAround:
		out.Maneuver = animation.Maneuver{Kind: animation.KindTurnAround, Direction: gs.turnAroundDirection()}
		gs.Heading = gs.Heading.Opposite()
		out.HeadingAfter = gs.Heading
		out.Success = true
		gs.Message = fmt.Sprintf("Turned around at (%d,%d), now facing %s", gs.VanPos.X, gs.VanPos.Y, gs.Heading)
	case Wait:
		out.Maneuver = animation.Maneuver{Kind: animation.KindWait}
		out.Success = true
		gs.Message = fmt.Sprintf("Waiting at (%d,%d)", gs.VanPos.X, gs.VanPos.Y)
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	out.Message = gs.Message
	return out, nil
}

// drive moves the van one cell along heading, or records the crash or
// collision that stops it.
func (gs *GameState) drive(out *Outcome, heading Heading, attempted animation.Action, kind animation.Kind, scale float64, config *GameConfig) {
	target := gs.VanPos.Add(heading)
	cell := gs.CellAt(target)

	switch {
	case cell.Type == Obstacle:
		out.Maneuver = animation.Maneuver{Kind: animation.KindCollideWithObstacle, Attempted: attempted}
		out.StopsProgram = true
		gs.Message = fmt.Sprintf("COLLISION: obstacle at (%d,%d) moving %s from (%d,%d)",
			target.X, target.Y, heading, gs.VanPos.X, gs.VanPos.Y)
		if config.Messages.Collided != "" {
			gs.Message = config.Messages.Collided + fmt.Sprintf(" [Obstacle at (%d,%d)]", target.X, target.Y)
		}

	case !gs.CanDriveTo(target):
		what := "boundary"
		if gs.InBounds(target) {
			what = string(cell.Type)
		}
		out.Maneuver = animation.Maneuver{Kind: animation.KindCrash, Attempted: attempted}
		out.StopsProgram = true
		gs.Crashed = true
		gs.Message = fmt.Sprintf("CRASH: hit %s at (%d,%d) moving %s from (%d,%d)",
			what, target.X, target.Y, heading, gs.VanPos.X, gs.VanPos.Y)
		if config.Messages.Crashed != "" {
			gs.Message = config.Messages.Crashed + fmt.Sprintf(" [Hit: %s at (%d,%d)]", what, target.X, target.Y)
		}
		if config.CrashEndsRun {
			gs.GameOver = true
			if config.Messages.RunOver != "" {
				gs.Message += " " + config.Messages.RunOver
			}
		}

	default:
		out.Maneuver = animation.Maneuver{Kind: kind, Scale: scale}
		out.Success = true
		gs.VanPos = target
		gs.Heading = heading
		out.To = target
		out.HeadingAfter = heading
		gs.arrive(config)
	}
}

// arrive updates the score when the van reaches a destination.
func (gs *GameState) arrive(config *GameConfig) {
	cell := gs.CellAt(gs.VanPos)

	if cell.Type == Destination && cell.ID != "" && !gs.VisitedDestinations[cell.ID] {
		gs.VisitedDestinations[cell.ID] = true
		cell.Visited = true
		gs.Score++
		gs.Message = fmt.Sprintf(config.Messages.Delivered, gs.Score)

		if gs.Score == CountTotalDestinations(gs.Grid) {
			gs.Victory = true
			gs.GameOver = true
			gs.Message = fmt.Sprintf(config.Messages.Victory, gs.Score)
		}
		return
	}

	gs.Message = fmt.Sprintf("Moved to (%d,%d) facing %s", gs.VanPos.X, gs.VanPos.Y, gs.Heading)
	if config.Messages.Moved != "" {
		gs.Message = config.Messages.Moved + fmt.Sprintf(" [(%d,%d) %s]", gs.VanPos.X, gs.VanPos.Y, gs.Heading)
	}
}

// turnAroundDirection picks where the van makes room to turn: ahead if the
// road continues, otherwise into a side road, otherwise on the spot.
func (gs *GameState) turnAroundDirection() animation.Direction {
	switch {
	case gs.CanDriveTo(gs.VanPos.Add(gs.Heading)):
		return animation.DirectionForward
	case gs.CanDriveTo(gs.VanPos.Add(gs.Heading.Right())):
		return animation.DirectionRight
	case gs.CanDriveTo(gs.VanPos.Add(gs.Heading.Left())):
		return animation.DirectionLeft
	}
	return animation.DirectionForward
}

// GenerateLocalView creates list of 8 surrounding cells around the van,
// starting north and going clockwise.
func (gs *GameState) GenerateLocalView() []SurroundingCell {
	px, py := gs.VanPos.X, gs.VanPos.Y

	directions := []struct{ dx, dy int }{
		{0, 1},   // North
		{1, 1},   // North-East
		{1, 0},   // East
		{1, -1},  // South-East
		{0, -1},  // South
		{-1, -1}, // South-West
		{-1, 0},  // West
		{-1, 1},  // North-West
	}

	surroundings := make([]SurroundingCell, 8)
	for i, dir := range directions {
		p := Position{X: px + dir.dx, Y: py + dir.dy}
		surroundings[i] = SurroundingCell{
			X:    p.X,
			Y:    p.Y,
			Type: gs.CellAt(p).Type,
		}
	}

	return surroundings
}

// AddMoveToHistory adds an outcome to the game's move history
func (gs *GameState) AddMoveToHistory(out Outcome) {
	entry := MoveHistoryEntry{
		Action:        out.Action,
		FromPosition:  out.From,
		ToPosition:    out.To,
		HeadingBefore: out.HeadingBefore,
		HeadingAfter:  out.HeadingAfter,
		Maneuver:      out.Maneuver.String(),
		Timestamp:     time.Now().Unix(),
		Success:       out.Success,
		MoveNumber:    gs.TotalMoves + 1,
	}
	// Append to cumulative history (never cleared by reset) and increment total
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++

	// Append to current segment history and increment its counter
	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}
