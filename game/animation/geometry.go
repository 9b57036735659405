package animation

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry holds the drawing constants of the road grid.
type Geometry struct {
	GridSpaceSize float64 `yaml:"grid_space_size" json:"grid_space_size"`
	PaperPadding  float64 `yaml:"paper_padding" json:"paper_padding"`
	RoadWidth     float64 `yaml:"road_width" json:"road_width"`

	// LaneOffset is the distance between the road edge and the middle of the left lane.
	LaneOffset float64 `yaml:"lane_offset" json:"lane_offset"`

	TurnLeftRadius   float64 `yaml:"turn_left_radius" json:"turn_left_radius"`
	TurnRightRadius  float64 `yaml:"turn_right_radius" json:"turn_right_radius"`
	TurnAroundRadius float64 `yaml:"turn_around_radius" json:"turn_around_radius"`

	// TurnAroundSettleMs is added to the summed turn-around step durations.
	TurnAroundSettleMs float64 `yaml:"turn_around_settle_ms" json:"turn_around_settle_ms"`

	CrashForwardFraction float64 `yaml:"crash_forward_fraction" json:"crash_forward_fraction"`
	CrashTurnDegrees     float64 `yaml:"crash_turn_degrees" json:"crash_turn_degrees"`
	CollisionTurnDegrees float64 `yaml:"collision_turn_degrees" json:"collision_turn_degrees"`

	ScrollMargin float64 `yaml:"scroll_margin" json:"scroll_margin"`
}

// DefaultGeometry returns the standard board geometry.
func DefaultGeometry() Geometry {
	return Geometry{
		GridSpaceSize:        100,
		PaperPadding:         30,
		RoadWidth:            40,
		LaneOffset:           38,
		TurnLeftRadius:       38,
		TurnRightRadius:      62,
		TurnAroundRadius:     12,
		TurnAroundSettleMs:   45,
		CrashForwardFraction: 0.8,
		CrashTurnDegrees:     75,
		CollisionTurnDegrees: 15,
		ScrollMargin:         150,
	}
}

// LoadGeometry reads a YAML geometry file. Keys missing from the file keep
// their default values.
func LoadGeometry(path string) (Geometry, error) {
	geo := DefaultGeometry()

	data, err := os.ReadFile(path)
	if err != nil {
		return geo, fmt.Errorf("failed to read geometry file: %w", err)
	}
	if err := yaml.Unmarshal(data, &geo); err != nil {
		return geo, fmt.Errorf("failed to parse geometry file: %w", err)
	}
	if err := geo.Validate(); err != nil {
		return geo, err
	}
	return geo, nil
}

// Validate checks the constants for values no maneuver can be built from.
func (g Geometry) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"grid_space_size", g.GridSpaceSize},
		{"road_width", g.RoadWidth},
		{"turn_left_radius", g.TurnLeftRadius},
		{"turn_right_radius", g.TurnRightRadius},
		{"turn_around_radius", g.TurnAroundRadius},
	}
	for _, p := range positive {
		if p.value <= 0 || math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidGeometry, p.name, p.value)
		}
	}

	if g.RoadWidth >= g.GridSpaceSize {
		return fmt.Errorf("%w: road_width (%v) must be smaller than grid_space_size (%v)",
			ErrInvalidGeometry, g.RoadWidth, g.GridSpaceSize)
	}
	// Left and right lanes sit at different offsets from the junction centre.
	if g.TurnLeftRadius == g.TurnRightRadius {
		return fmt.Errorf("%w: turn_left_radius and turn_right_radius must differ, both are %v",
			ErrInvalidGeometry, g.TurnLeftRadius)
	}
	if g.CrashForwardFraction <= 0 || g.CrashForwardFraction > 1 {
		return fmt.Errorf("%w: crash_forward_fraction must be in (0, 1], got %v", ErrInvalidGeometry, g.CrashForwardFraction)
	}
	if g.PaperPadding < 0 || g.TurnAroundSettleMs < 0 || g.ScrollMargin < 0 {
		return fmt.Errorf("%w: paper_padding, turn_around_settle_ms and scroll_margin cannot be negative", ErrInvalidGeometry)
	}
	return nil
}

func circumference(radius float64) float64 {
	return 2 * math.Pi * radius
}

// MoveDistance is the length of one forward move.
func (g Geometry) MoveDistance() float64 { return g.GridSpaceSize }

// TurnLeftDistance is the quarter-circle arc of a left turn.
func (g Geometry) TurnLeftDistance() float64 { return circumference(g.TurnLeftRadius) / 4 }

// TurnRightDistance is the quarter-circle arc of a right turn.
func (g Geometry) TurnRightDistance() float64 { return circumference(g.TurnRightRadius) / 4 }

// TurnAroundDistance is the half-circle arc of the 180° pivot.
func (g Geometry) TurnAroundDistance() float64 { return circumference(g.TurnAroundRadius) / 2 }

// TurnAroundSettle is the extra time reported on top of a turn-around chain.
func (g Geometry) TurnAroundSettle() time.Duration {
	return msToDuration(g.TurnAroundSettleMs)
}

// CollisionFactor scales a full maneuver duration down to the time it takes
// to reach the near edge of an obstacle spanning the road.
func (g Geometry) CollisionFactor() float64 {
	return (g.GridSpaceSize - g.RoadWidth) / (g.GridSpaceSize + g.RoadWidth)
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// travelTime converts a distance into an animation duration at speed units per millisecond.
func travelTime(distance, speed float64) time.Duration {
	return msToDuration(distance / speed)
}
