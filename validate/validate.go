// Command validate provides a small CLI that validates level JSON files and
// the board geometry file in the ../configs directory. It checks:
//   - JSON structure and required fields
//   - Grid consistency and allowed characters (R, H, D, C, B)
//   - Exactly one start (H) and at least one destination (D)
//   - Start heading and speed
//   - Required messages and their %d placeholders
//   - Connectivity: all destinations are reachable by road from the start
//   - geometry.yaml, when present, holds values maneuvers can be built from
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
)

// Config mirrors the JSON schema for a level.
type Config struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	GridWidth    int               `json:"grid_width"`
	GridHeight   int               `json:"grid_height"`
	Layout       []string          `json:"layout"`
	StartHeading string            `json:"start_heading"`
	Speed        float64           `json:"speed"`
	NightMode    bool              `json:"night_mode"`
	CrashEndsRun bool              `json:"crash_ends_run"`
	Messages     map[string]string `json:"messages"`
	Legend       map[string]string `json:"legend"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single level JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if config.Name == "" {
		result.fail("name is required")
	}

	// Validate grid
	if len(config.Layout) == 0 {
		result.fail("Layout is empty")
	}
	if config.GridHeight != len(config.Layout) {
		result.fail("grid_height is %d but layout has %d rows", config.GridHeight, len(config.Layout))
	}

	startCount := 0
	destinationCount := 0
	obstacleCount := 0
	validChars := map[rune]bool{
		'R': true, // Road
		'H': true, // Start
		'D': true, // Destination
		'C': true, // Obstacle
		'B': true, // Building
	}

	for i, row := range config.Layout {
		if len(row) != config.GridWidth {
			result.fail("Inconsistent grid width at row %d: expected %d, got %d", i+1, config.GridWidth, len(row))
		}

		for j, char := range row {
			if !validChars[char] {
				result.fail("Invalid character '%c' at position [%d,%d]", char, i+1, j+1)
			}
			switch char {
			case 'H':
				startCount++
			case 'D':
				destinationCount++
			case 'C':
				obstacleCount++
			}
		}
	}

	// Validate game elements
	if startCount != 1 {
		result.fail("Must have exactly 1 start (H) cell, got %d", startCount)
	}
	if destinationCount == 0 {
		result.fail("Must have at least 1 destination (D)")
	}

	if config.StartHeading != "" {
		if _, err := engine.ParseHeading(config.StartHeading); err != nil {
			result.fail("start_heading: %v", err)
		}
	}
	if config.Speed < 0 {
		result.fail("speed cannot be negative, got %v", config.Speed)
	}

	// Validate messages
	requiredMessages := []string{"welcome", "delivered", "victory"}
	if config.CrashEndsRun {
		requiredMessages = append(requiredMessages, "run_over")
	}
	for _, msg := range requiredMessages {
		if config.Messages[msg] == "" {
			result.fail("Missing required message: %s", msg)
		}
	}
	for _, msg := range []string{"delivered", "victory"} {
		if text, ok := config.Messages[msg]; ok && text != "" && !strings.Contains(text, "%d") {
			result.fail("Message %s must contain %%d", msg)
		}
	}

	// Connectivity validation - check if all destinations are reachable from the start
	if result.Valid {
		reachabilityResult := validateConnectivity(config.Layout)
		if !reachabilityResult.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, reachabilityResult.Errors...)
	}

	// Add informational data
	if result.Valid {
		heading := config.StartHeading
		if heading == "" {
			heading = string(engine.East)
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", config.GridWidth, config.GridHeight))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Start heading: %s", heading))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Destinations: %d", destinationCount))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Obstacles: %d", obstacleCount))
		if config.NightMode {
			result.Errors = append(result.Errors, "✓ Night mode")
		}
	}

	return result
}

// validateConnectivity ensures all destinations are reachable from the start
// using 4-directional movement over road cells (R, H, D). Obstacles block the
// road. Rows are read top to bottom; reported positions use y=0 for the
// bottom row, as the game does.
func validateConnectivity(layout []string) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	if len(layout) == 0 {
		result.fail("Cannot validate connectivity: empty layout")
		return result
	}

	height := len(layout)
	width := len(layout[0])

	type cell struct{ x, y int }
	var start *cell
	var destinations []cell

	for row := 0; row < height; row++ {
		for x := 0; x < width && x < len(layout[row]); x++ {
			switch layout[row][x] {
			case 'H':
				start = &cell{x, row}
			case 'D':
				destinations = append(destinations, cell{x, row})
			}
		}
	}

	if start == nil {
		result.fail("No start position found for connectivity test")
		return result
	}
	if len(destinations) == 0 {
		result.fail("No destinations found for connectivity test")
		return result
	}

	isRoad := func(c cell) bool {
		if c.x < 0 || c.y < 0 || c.y >= height || c.x >= len(layout[c.y]) {
			return false
		}
		ch := layout[c.y][c.x]
		return ch == 'R' || ch == 'H' || ch == 'D'
	}

	// Flood fill from the start
	visited := map[cell]bool{*start: true}
	queue := []cell{*start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range []cell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			next := cell{current.x + dir.x, current.y + dir.y}
			if !visited[next] && isRoad(next) {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for _, d := range destinations {
		if !visited[d] {
			unreachable = append(unreachable, fmt.Sprintf("Destination at (%d,%d)", d.x, height-1-d.y))
		}
	}

	if len(unreachable) > 0 {
		result.fail("Connectivity failure: %d/%d destinations unreachable from the start", len(unreachable), len(destinations))
		for _, d := range unreachable {
			result.Errors = append(result.Errors, fmt.Sprintf("Unreachable: %s", d))
		}
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: All %d destinations reachable from the start", len(destinations)))
	}

	return result
}

// validateGeometry checks a board geometry YAML file.
func validateGeometry(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	geo, err := animation.LoadGeometry(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Grid space: %g", geo.GridSpaceSize),
		fmt.Sprintf("✓ Turn radii: left %g, right %g, around %g", geo.TurnLeftRadius, geo.TurnRightRadius, geo.TurnAroundRadius),
		fmt.Sprintf("✓ Forward move: %g units", geo.MoveDistance()),
	)
	return result
}

func printResult(result ValidationResult) bool {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return true
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
	return false
}

// main scans the configs directory (../configs unless given) for level files
// and the geometry file, printing a concise report and exiting with non-zero
// status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		if !printResult(validateConfig(file)) {
			allValid = false
		}
	}

	geometryPath := filepath.Join(configDir, "geometry.yaml")
	if _, err := os.Stat(geometryPath); err == nil {
		if !printResult(validateGeometry(geometryPath)) {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
