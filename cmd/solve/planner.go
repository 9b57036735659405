package main

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/vanroute/game/engine"
)

var ErrUnreachable = errors.New("destination unreachable")

// pose is where the van is and which way it faces.
type pose struct {
	pos     engine.Position
	heading engine.Heading
}

// planActions are the actions the planner tries, in order. Wait never
// changes the pose.
var planActions = []engine.Action{engine.Forward, engine.TurnLeft, engine.TurnRight, engine.TurnAround}

// Planner builds a program that visits every destination still to deliver.
// It drives to the nearest undelivered destination (fewest actions), then
// plans the next leg from there.
type Planner struct {
	state     *engine.GameState
	delivered map[string]bool
}

// NewPlanner plans from the van's current pose in state.
func NewPlanner(state *engine.GameState) *Planner {
	delivered := make(map[string]bool, len(state.VisitedDestinations))
	for id, ok := range state.VisitedDestinations {
		delivered[id] = ok
	}
	return &Planner{state: state, delivered: delivered}
}

// Plan returns the full program. If some destination cannot be reached it
// returns the program for the reachable ones along with ErrUnreachable.
func (p *Planner) Plan() ([]engine.Action, error) {
	var program []engine.Action
	current := pose{pos: p.state.VanPos, heading: p.state.Heading}

	for remaining := p.remaining(); remaining > 0; remaining-- {
		leg, end, ok := p.nearest(current)
		if !ok {
			return program, fmt.Errorf("%w: %d left", ErrUnreachable, remaining)
		}
		program = append(program, leg...)
		current = end
		p.delivered[p.state.CellAt(end.pos).ID] = true
	}
	return program, nil
}

func (p *Planner) remaining() int {
	count := 0
	for _, row := range p.state.Grid {
		for _, cell := range row {
			if cell.Type == engine.Destination && !p.delivered[cell.ID] {
				count++
			}
		}
	}
	return count
}

func (p *Planner) undelivered(pos engine.Position) bool {
	cell := p.state.CellAt(pos)
	return cell.Type == engine.Destination && !p.delivered[cell.ID]
}

// nearest searches poses breadth first from start and returns the actions
// that first reach an undelivered destination.
func (p *Planner) nearest(start pose) ([]engine.Action, pose, bool) {
	type step struct {
		from   pose
		action engine.Action
	}
	came := map[pose]step{start: {}}
	queue := []pose{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, action := range planActions {
			next, ok := p.apply(current, action)
			if !ok {
				continue
			}
			if _, seen := came[next]; seen {
				continue
			}
			came[next] = step{from: current, action: action}

			if p.undelivered(next.pos) {
				var leg []engine.Action
				for at := next; at != start; at = came[at].from {
					leg = append([]engine.Action{came[at].action}, leg...)
				}
				return leg, next, true
			}
			queue = append(queue, next)
		}
	}
	return nil, start, false
}

// apply returns the pose after action, or false if the van would crash or
// hit an obstacle.
func (p *Planner) apply(from pose, action engine.Action) (pose, bool) {
	heading := from.heading
	switch action {
	case engine.TurnAround:
		return pose{pos: from.pos, heading: heading.Opposite()}, true
	case engine.TurnLeft:
		heading = heading.Left()
	case engine.TurnRight:
		heading = heading.Right()
	}

	target := from.pos.Add(heading)
	if !p.state.CanDriveTo(target) {
		return from, false
	}
	return pose{pos: target, heading: heading}, true
}

// chunk splits program into runs the server accepts.
func chunk(program []engine.Action, size int) [][]engine.Action {
	var runs [][]engine.Action
	for len(program) > size {
		runs = append(runs, program[:size])
		program = program[size:]
	}
	if len(program) > 0 {
		runs = append(runs, program)
	}
	return runs
}
