// Package engine provides the route puzzle rules for the van game.
//
// The engine package implements the game mechanics including:
//   - Grid-based driving with a heading and relative turns
//   - Crash and obstacle collision detection
//   - Destination deliveries and victory conditions
//   - Game state management and persistence
//   - Level configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState represents the current game state,
// while GameConfig defines the level layout loaded from JSON files. Every
// action yields an Outcome carrying the animation.Maneuver that draws it.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/easy.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out, err := gameEngine.Step(engine.Forward, 0)
//	duration, err := van.Dispatch(out.Maneuver, nil)
//
// Game Rules:
//
// The van starts on the H cell facing start_heading. Driving into a building
// or off the grid is a crash; driving into a cow (C) is a collision. Both
// leave the van where it was and stop the program. The level is won once
// every destination (D) has been reached.
//
// Positions use y-up puzzle coordinates: y=0 is the last layout row.
package engine
