package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateGameConfig validates a level configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate grid size
	if config.GridWidth < MinGridSize || config.GridWidth > MaxGridSize {
		return fmt.Errorf("config validation: grid_width must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridWidth)
	}
	if config.GridHeight < MinGridSize || config.GridHeight > MaxGridSize {
		return fmt.Errorf("config validation: grid_height must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridHeight)
	}

	if !config.StartHeading.valid() {
		return fmt.Errorf("config validation: start_heading must be one of N, E, S, W, got %q", config.StartHeading)
	}
	if config.Speed < 0 {
		return fmt.Errorf("config validation: speed cannot be negative, got %v", config.Speed)
	}

	// Validate layout
	if len(config.Layout) != config.GridHeight {
		return fmt.Errorf("config validation: layout must have %d rows to match grid_height, got %d",
			config.GridHeight, len(config.Layout))
	}

	starts := 0
	destinationCount := 0
	for i, row := range config.Layout {
		if len(row) != config.GridWidth {
			return fmt.Errorf("config validation: row %d must have %d characters to match grid_width, got %d",
				i+1, config.GridWidth, len(row))
		}

		// Validate characters and count important cells
		for j, char := range row {
			switch char {
			case 'R', 'C', 'B': // Valid characters
			case 'H':
				starts++
			case 'D':
				destinationCount++
			default:
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}

	if starts != 1 {
		return fmt.Errorf("config validation: layout must contain exactly one start (H) cell, got %d", starts)
	}
	if destinationCount == 0 {
		return fmt.Errorf("config validation: layout must contain at least one destination (D) cell")
	}

	// Validate legend
	requiredLegend := map[string]string{
		"R": "road",
		"H": "start",
		"D": "destination",
		"C": "obstacle",
		"B": "building",
	}
	for key, expectedValue := range requiredLegend {
		if value, ok := config.Legend[key]; !ok || value != expectedValue {
			return fmt.Errorf("config validation: legend['%s'] must be '%s', got '%s'", key, expectedValue, value)
		}
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Victory == "" {
		return fmt.Errorf("config validation: messages.victory is required")
	}
	if config.CrashEndsRun && config.Messages.RunOver == "" {
		return fmt.Errorf("config validation: messages.run_over is required when crash_ends_run is true")
	}

	// Validate format strings
	if !strings.Contains(config.Messages.Delivered, "%d") {
		return fmt.Errorf("config validation: messages.delivered must contain %%d for score")
	}
	if !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: messages.victory must contain %%d for destination count")
	}

	// Validate winnability - every destination must be reachable by road from the start
	state := InitGameStateFromConfig(config)
	distances := RoadDistances(state, state.VanPos)
	for y, row := range config.Layout {
		for x, cell := range row {
			if cell != 'D' {
				continue
			}
			pos := Position{X: x, Y: config.GridHeight - 1 - y}
			if _, ok := distances[pos]; !ok {
				return fmt.Errorf("config validation: destination at row %d, col %d is unreachable by road from the start",
					y+1, x+1)
			}
		}
	}

	return nil
}

// LoadGameConfig loads a level configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		// If filename starts with "configs/", replace with CONFIG_DIR
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns the built-in level used when no config is given
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:         "Default",
		Description:  "A small loop with two deliveries and a cow on the road",
		GridWidth:    6,
		GridHeight:   5,
		StartHeading: East,
		Layout: []string{
			"BBBBBB",
			"BRRRDB",
			"BRBBCB",
			"BHRRRD",
			"BBBBBB",
		},
		Legend: map[string]string{
			"R": "road",
			"H": "start",
			"D": "destination",
			"C": "obstacle",
			"B": "building",
		},
		Messages: Messages{
			Welcome:   "Welcome! Program the van to deliver to every house.",
			Delivered: "Delivered! Score: %d",
			Victory:   "Victory! All %d deliveries made!",
			Crashed:   "Crashed!",
			Collided:  "Watch out for the cow!",
			RunOver:   "Run over.",
		},
	}
}

// InitGameStateFromConfig creates a new game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultConfig()
	}

	height := len(config.Layout)
	grid := make([][]Cell, height)

	destinationCount := 0
	var start Position

	for row := 0; row < height; row++ {
		grid[row] = make([]Cell, len(config.Layout[row]))
		for x := 0; x < len(config.Layout[row]); x++ {
			switch config.Layout[row][x] {
			case 'R':
				grid[row][x] = Cell{Type: Road}
			case 'H':
				grid[row][x] = Cell{Type: Start}
				start = Position{X: x, Y: height - 1 - row}
			case 'D':
				grid[row][x] = Cell{Type: Destination, ID: fmt.Sprintf("destination_%d", destinationCount)}
				destinationCount++
			case 'C':
				grid[row][x] = Cell{Type: Obstacle}
			default:
				grid[row][x] = Cell{Type: Building}
			}
		}
	}

	heading := config.StartHeading
	if !heading.valid() {
		heading = East
	}

	return &GameState{
		Grid:                grid,
		VanPos:              start,
		Heading:             heading,
		Score:               0,
		VisitedDestinations: make(map[string]bool),
		Message:             config.Messages.Welcome,
		ConfigName:          config.Name,
		MoveHistory:         []MoveHistoryEntry{},
		TotalMoves:          0,
		CurrentMoves:        []MoveHistoryEntry{},
		CurrentMovesCount:   0,
	}
}
