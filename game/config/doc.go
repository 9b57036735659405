// Package config provides level configuration management for the van route game.
//
// The config package handles:
//   - Loading level configurations from JSON files
//   - Default level selection
//   - Level discovery and listing
//   - Board geometry overrides from geometry.yaml
//
// Configuration Format:
//
// Levels are stored as JSON files in the configs directory. Each level defines
// a grid layout using a character legend (R=road, H=start, D=destination,
// C=cow, B=building), the start heading, an optional default speed, night
// mode, and the messages shown to the player.
//
// The same directory may hold a geometry.yaml file that overrides the drawing
// constants used by the animation package (grid spacing, turn radii, crash
// distances). Keys missing from the file keep their default values.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("easy")
//	geometry := manager.Geometry()
//	levels, err := manager.ListConfigs()
package config
