package service

import (
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/engine"
)

// SessionOptions are the caller's overrides for a new session. Zero values
// fall back to the level config and then to the player preferences.
type SessionOptions struct {
	Speed     float64 `json:"speed,omitempty"`
	NightMode *bool   `json:"night_mode,omitempty"`
}

// RenderOptions are the resolved settings a session's van is drawn with.
type RenderOptions struct {
	Speed           float64 `json:"speed"`
	NightMode       bool    `json:"night_mode"`
	WreckageEffects bool    `json:"wreckage_effects"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	Speed          float64            `json:"speed"`
	NightMode      bool               `json:"night_mode"`
	Running        bool               `json:"running"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActResult contains the result of a single action
type ActResult struct {
	Success         bool              `json:"success"`
	Outcome         engine.Outcome    `json:"outcome"`
	DurationMs      float64           `json:"duration_ms"`
	GameState       *engine.GameState `json:"game_state"`
	Message         string            `json:"message"`
	Events          []GameEvent       `json:"events,omitempty"`
	PossibleActions []engine.Action   `json:"possible_actions"`
}

// RunResult contains the result of a program run. The engine outcome of
// every executed action is known immediately; the animations play out over
// TotalDurationMs.
type RunResult struct {
	RequestedActions int               `json:"requested_actions"`
	ActionsExecuted  int               `json:"actions_executed"`
	Success          bool              `json:"success"`
	GameState        *engine.GameState `json:"game_state"`
	Events           []GameEvent       `json:"events"`
	Steps            []StepInfo        `json:"steps,omitempty"`
	TotalDurationMs  float64           `json:"total_duration_ms"`

	StoppedReason   string `json:"stopped_reason,omitempty"`
	StopReasonCode  string `json:"stop_reason_code,omitempty"` // crashed|collided|run_over|victory
	StoppedOnAction int    `json:"stopped_on_action,omitempty"`

	StartPos   engine.Position `json:"start_pos"`
	EndPos     engine.Position `json:"end_pos"`
	ScoreDelta int             `json:"score_delta"`

	GameOver        bool            `json:"game_over"`
	Victory         bool            `json:"victory"`
	Message         string          `json:"message,omitempty"`
	PossibleActions []engine.Action `json:"possible_actions,omitempty"`
}

// StepInfo is a compact record of one executed action and when its
// animation starts relative to the start of the run
type StepInfo struct {
	Idx           int             `json:"idx"`
	Action        engine.Action   `json:"action"`
	From          engine.Position `json:"from"`
	To            engine.Position `json:"to"`
	HeadingBefore engine.Heading  `json:"heading_before"`
	HeadingAfter  engine.Heading  `json:"heading_after"`
	Maneuver      string          `json:"maneuver"`
	Success       bool            `json:"success"`
	Delivered     bool            `json:"delivered,omitempty"`
	StartMs       float64         `json:"start_ms"`
	DurationMs    float64         `json:"duration_ms"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "turn", "wait", "delivered", "crash", "collision", "victory", "run_over", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a level configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	GridWidth    int    `json:"grid_width"`
	GridHeight   int    `json:"grid_height"`
	Destinations int    `json:"destinations"`
	NightMode    bool   `json:"night_mode"`
	CrashEndsRun bool   `json:"crash_ends_run"`
}
