package session

import (
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID. The returned session has
	// its engine restored but no scene; the manager draws it.
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// persistedVersion is the session file format written by this build.
const persistedVersion = 1

// PersistedSessionData is the JSON layout of a session file. Files without a
// version predate versioning and are read as version 1.
type PersistedSessionData struct {
	Version         int               `json:"version"`
	ID              string            `json:"id"`
	ConfigName      string            `json:"config_name"`
	Speed           float64           `json:"speed"`
	NightMode       bool              `json:"night_mode"`
	WreckageEffects bool              `json:"wreckage_effects"`
	CreatedAt       time.Time         `json:"created_at"`
	LastAccessedAt  time.Time         `json:"last_accessed_at"`
	GameState       *engine.GameState `json:"game_state"`
}
