package animation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidManeuverKind = errors.New("invalid maneuver kind")
	ErrInvalidSpeed        = errors.New("speed must be positive")
	ErrNotRendered         = errors.New("character has not been rendered")
)

// Kind identifies a maneuver.
type Kind string

const (
	KindMoveForward         Kind = "move_forward"
	KindTurnLeft            Kind = "turn_left"
	KindTurnRight           Kind = "turn_right"
	KindTurnAround          Kind = "turn_around"
	KindWait                Kind = "wait"
	KindCrash               Kind = "crash"
	KindCollideWithObstacle Kind = "collide_with_obstacle"
)

// Direction selects the turn-around variant, i.e. where the van makes room to turn.
type Direction string

const (
	DirectionForward Direction = "FORWARD"
	DirectionRight   Direction = "RIGHT"
	DirectionLeft    Direction = "LEFT"
)

// Action is the move a crash or collision interrupted.
type Action string

const (
	ActionForward   Action = "FORWARD"
	ActionTurnLeft  Action = "TURN_LEFT"
	ActionTurnRight Action = "TURN_RIGHT"
)

// Maneuver describes one discrete movement of the van.
type Maneuver struct {
	Kind      Kind          `json:"kind"`
	Scale     float64       `json:"scale,omitempty"`
	Direction Direction     `json:"direction,omitempty"`
	Attempted Action        `json:"attempted,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Validate rejects maneuvers that carry an unknown kind, direction or action.
func (m Maneuver) Validate() error {
	switch m.Kind {
	case KindMoveForward, KindTurnLeft, KindTurnRight, KindWait:
	case KindTurnAround:
		if !m.Direction.valid() {
			return fmt.Errorf("%w: turn-around direction %q", ErrInvalidManeuverKind, m.Direction)
		}
	case KindCrash, KindCollideWithObstacle:
		if !m.Attempted.valid() {
			return fmt.Errorf("%w: attempted action %q", ErrInvalidManeuverKind, m.Attempted)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidManeuverKind, m.Kind)
	}
	if m.Scale < 0 {
		return fmt.Errorf("%w: negative scale %v", ErrInvalidManeuverKind, m.Scale)
	}
	return nil
}

func (m Maneuver) String() string {
	switch m.Kind {
	case KindTurnAround:
		return fmt.Sprintf("%s(%s)", m.Kind, m.Direction)
	case KindCrash, KindCollideWithObstacle:
		return fmt.Sprintf("%s(%s)", m.Kind, m.Attempted)
	}
	return string(m.Kind)
}

func (d Direction) valid() bool {
	switch d {
	case DirectionForward, DirectionRight, DirectionLeft:
		return true
	}
	return false
}

func (a Action) valid() bool {
	switch a {
	case ActionForward, ActionTurnLeft, ActionTurnRight:
		return true
	}
	return false
}

// ParseDirection accepts FORWARD, RIGHT or LEFT in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.valid() {
		return "", fmt.Errorf("%w: turn-around direction %q", ErrInvalidManeuverKind, s)
	}
	return d, nil
}

// ParseAction accepts FORWARD, TURN_LEFT or TURN_RIGHT in any case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.valid() {
		return "", fmt.Errorf("%w: attempted action %q", ErrInvalidManeuverKind, s)
	}
	return a, nil
}
