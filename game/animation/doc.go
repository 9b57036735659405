// Package animation drives the van sprite through its maneuvers.
//
// The package turns discrete route outcomes (move forward, turn left/right,
// turn around, wait, crash, collide with an obstacle) into timed transform
// animations on a Canvas:
//   - Character owns the per-sprite state (cumulative scale and speed) and
//     returns each maneuver's duration synchronously
//   - Chain runs compound maneuvers as an ordered list of steps, where a step
//     only starts once the previous step's completion signal has fired
//   - Geometry holds the grid and turn constants every transform is derived from
//
// Usage:
//
//	char, err := animation.NewCharacter(canvas, animation.Options{
//		Geometry:  animation.DefaultGeometry(),
//		ImageURL:  "characters/top_view/Van.svg",
//		Width:     40,
//		Height:    20,
//		Speed:     1,
//		Start:     animation.Position{Previous: animation.Node{X: 0, Y: 3}, Current: animation.Node{X: 1, Y: 3}},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := char.Render(); err != nil {
//		log.Fatal(err)
//	}
//
//	d, _ := char.MoveForward(nil, 0)
//	// schedule the next maneuver after d
//
// Coordinates:
//
// Pivot points are computed in the sprite's own, possibly scaled, coordinate
// space: a turn radius is divided by the current cumulative scale before it is
// added to the sprite centre.
package animation
