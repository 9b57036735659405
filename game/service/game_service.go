package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/scene"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, opts SessionOptions) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Act(ctx context.Context, sessionID, action string, scale float64, reset bool) (*ActResult, error)
	Run(ctx context.Context, sessionID string, program []string, reset bool) (*RunResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	SetSpeed(ctx context.Context, sessionID string, speed float64) (*SessionInfo, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetScene(ctx context.Context, sessionID string) ([]scene.SpriteState, error)
	// SceneSnapshot is GetScene with mark called while the scene is locked.
	SceneSnapshot(ctx context.Context, sessionID string, mark func()) ([]scene.SpriteState, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
	Geometry(ctx context.Context) animation.Geometry

	// Preferences
	GetPreferences(ctx context.Context) settings.Preferences
	SetPreferences(ctx context.Context, prefs settings.Preferences) (settings.Preferences, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig, render RenderOptions) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles level configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
	ConfigID(config *engine.GameConfig) string
	Geometry() animation.Geometry
}

// PreferenceStore holds the player preferences applied to new sessions
type PreferenceStore interface {
	Get() settings.Preferences
	Update(prefs settings.Preferences) error
}

// Notifier receives events that happen outside a request, such as the end
// of a program's animations
type Notifier interface {
	BroadcastEvent(sessionID, event string, data any)
}

// Session represents an active game session: the route engine and the van
// drawn on the session's scene
type Session struct {
	ID             string
	ConfigName     string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	Scene          *scene.Scene
	Van            *animation.Character
	Render         RenderOptions
	CreatedAt      time.Time
	LastAccessedAt time.Time

	run *programRun
}

// Running reports whether a program's animations are still playing.
func (s *Session) Running() bool {
	return s.run != nil && !s.run.finished()
}
