// Command analyze prints quick, human-readable heuristics about the level
// files in a configs directory. It summarizes dimensions, the start square
// and heading, destinations and obstacles, and highlights destinations the
// van cannot reach by road.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
)

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No level files found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	geo := animation.DefaultGeometry()
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeConfig(os.Stdout, file, geo)
	}
}

// analyzeConfig writes the analysis of one level file to w. It reports
// whether the level is fully playable.
func analyzeConfig(w io.Writer, path string, geo animation.Geometry) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error reading file: %v\n", err)
		return false
	}

	config := &engine.GameConfig{}
	if err := json.Unmarshal(data, config); err != nil {
		fmt.Fprintf(w, "Error parsing JSON: %v\n", err)
		return false
	}
	if len(config.Layout) == 0 {
		fmt.Fprintf(w, "Error: level has no layout\n")
		return false
	}

	// Keep analysing invalid levels; the rest of the report shows why
	playable := true
	if err := engine.ValidateGameConfig(config); err != nil {
		fmt.Fprintf(w, "⚠️  %v\n", err)
		playable = false
	}

	state := engine.InitGameStateFromConfig(config)
	speed := config.Speed
	if speed <= 0 {
		speed = settings.DefaultSpeed
	}

	fmt.Fprintf(w, "Name: %s\n", config.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", state.Width(), state.Height())
	fmt.Fprintf(w, "Start: (%d, %d) facing %s\n", state.VanPos.X, state.VanPos.Y, state.Heading)
	fmt.Fprintf(w, "Speed: %g units/ms, night mode: %v, crash ends run: %v\n", speed, config.NightMode, config.CrashEndsRun)
	fmt.Fprintf(w, "Destinations: %d, Obstacles: %d\n",
		engine.CountTotalDestinations(state.Grid), engine.CountCellType(state.Grid, engine.Obstacle))

	if !state.CanDriveTo(state.VanPos.Add(state.Heading)) {
		fmt.Fprintf(w, "Note: driving forward from the start is a crash or collision\n")
	}

	distances := engine.RoadDistances(state, state.VanPos)

	for _, dest := range destinations(state) {
		d, ok := distances[dest]
		if !ok {
			fmt.Fprintf(w, "⚠️  Unreachable destination: (%d, %d)\n", dest.X, dest.Y)
			playable = false
			continue
		}
		fmt.Fprintf(w, "Destination (%d, %d): %d squares by road, at least %s of driving\n",
			dest.X, dest.Y, d, driveTime(d, geo, speed))
	}

	// Road squares cut off from the start, usually by an obstacle
	isolated := 0
	for y := 0; y < state.Height(); y++ {
		for x := 0; x < state.Width(); x++ {
			p := engine.Position{X: x, Y: y}
			if state.CanDriveTo(p) {
				if _, ok := distances[p]; !ok {
					isolated++
				}
			}
		}
	}
	if isolated > 0 {
		fmt.Fprintf(w, "%d road squares cannot be reached from the start\n", isolated)
	}

	if playable {
		fmt.Fprintf(w, "✅ All destinations are reachable\n")
	}
	return playable
}

// destinations returns the destination squares, bottom row first.
func destinations(state *engine.GameState) []engine.Position {
	var out []engine.Position
	for y := 0; y < state.Height(); y++ {
		for x := 0; x < state.Width(); x++ {
			p := engine.Position{X: x, Y: y}
			if state.CellAt(p).Type == engine.Destination {
				out = append(out, p)
			}
		}
	}
	return out
}

// driveTime is how long the van takes to drive squares straight ahead.
func driveTime(squares int, geo animation.Geometry, speed float64) time.Duration {
	ms := float64(squares) * geo.GridSpaceSize / speed
	return time.Duration(ms * float64(time.Millisecond)).Round(time.Millisecond)
}
