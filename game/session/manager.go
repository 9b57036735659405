package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/scene"
	"github.com/wricardo/mcp-training/vanroute/game/service"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Sprite describes the van image drawn for every session.
type Sprite struct {
	ImageURL         string
	WreckageImageURL string
	Width            float64
	Height           float64
}

// DefaultSprite is the delivery van.
var DefaultSprite = Sprite{
	ImageURL:         "characters/top_view/Van.svg",
	WreckageImageURL: "van_wreckage.svg",
	Width:            20,
	Height:           40,
}

// Option configures a Manager
type Option func(*Manager)

// WithPersistence stores sessions through p.
func WithPersistence(p SessionPersistence) Option {
	return func(m *Manager) { m.persistence = p }
}

// WithGeometry sets the board geometry vans are drawn with.
func WithGeometry(geo animation.Geometry) Option {
	return func(m *Manager) { m.geometry = geo }
}

// WithClock sets the clock scenes and vans run on.
func WithClock(clock animation.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithSinkFactory sets where each session's draw commands are published.
func WithSinkFactory(f func(sessionID string) scene.Sink) Option {
	return func(m *Manager) { m.sinks = f }
}

// WithSprite replaces the van image.
func WithSprite(s Sprite) Option {
	return func(m *Manager) { m.sprite = s }
}

// Manager handles game session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	geometry    animation.Geometry
	clock       animation.Clock
	sinks       func(sessionID string) scene.Sink
	sprite      Sprite
	mu          sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		geometry: animation.DefaultGeometry(),
		clock:    animation.SystemClock{},
		sprite:   DefaultSprite,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	return NewManager(append([]Option{WithPersistence(persistence)}, opts...)...)
}

// Create creates a new session with the given ID and configuration. An empty
// id gets a random one.
func (m *Manager) Create(id, configID string, config *engine.GameConfig, render service.RenderOptions) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionIDLocked()
	}
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		ConfigName:     configID,
		Engine:         eng,
		Config:         config,
		Render:         render,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := m.attach(session); err != nil {
		return nil, err
	}

	m.sessions[strings.ToLower(id)] = session

	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			log.Printf("[SESSION] Warning: failed to persist session %s: %v", id, err)
		}
	}

	return session, nil
}

// attach draws the session's van on a new scene, at the engine's current
// position.
func (m *Manager) attach(session *service.Session) error {
	var opts []scene.Option
	opts = append(opts, scene.WithClock(m.clock))
	if m.sinks != nil {
		if sink := m.sinks(session.ID); sink != nil {
			opts = append(opts, scene.WithSink(sink))
		}
	}
	sc := scene.New(opts...)

	speed := session.Render.Speed
	if speed <= 0 {
		speed = settings.DefaultSpeed
	}

	van, err := animation.NewCharacter(sc, animation.Options{
		Geometry:              m.geometry,
		ImageURL:              m.sprite.ImageURL,
		WreckageImageURL:      m.sprite.WreckageImageURL,
		Width:                 m.sprite.Width,
		Height:                m.sprite.Height,
		Start:                 session.Engine.StartPosition(),
		GridHeight:            session.Config.GridHeight,
		Speed:                 speed,
		NightMode:             session.Render.NightMode,
		EnableWreckageEffects: session.Render.WreckageEffects,
		Clock:                 m.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to create van: %w", err)
	}
	if err := van.Render(); err != nil {
		return fmt.Errorf("failed to render van: %w", err)
	}

	current := session.Engine.AnimationPosition()
	if current != session.Engine.StartPosition() {
		if err := van.Place(current); err != nil {
			return fmt.Errorf("failed to place van: %w", err)
		}
	}

	session.Render.Speed = speed
	session.Scene = sc
	session.Van = van
	return nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		m.mu.Lock()
		defer m.mu.Unlock()

		// Another request may have loaded it meanwhile
		if session, exists := m.sessions[strings.ToLower(id)]; exists {
			return session, nil
		}

		session, err := m.loadLocked(id)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	return nil, ErrSessionNotFound
}

func (m *Manager) loadLocked(id string) (*service.Session, error) {
	session, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	if err := m.attach(session); err != nil {
		return nil, err
	}
	m.sessions[strings.ToLower(session.ID)] = session
	return session, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and storage
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	_, inMemory := m.sessions[lowerID]
	delete(m.sessions, lowerID)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.LastAccessedAt = time.Now()
	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(session)
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration from memory. Persisted copies are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionIDLocked generates a random 4-character session ID not
// used by any session in memory or storage
func (m *Manager) generateSessionIDLocked() string {
	for {
		bytes := make([]byte, 2)
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if m.sessionExists(id) {
			continue
		}
		if m.persistence != nil && m.persistence.Exists(id) {
			continue
		}
		return id
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if m.sessionExists(id) {
			continue
		}

		if _, err := m.loadLocked(id); err != nil {
			log.Printf("[SESSION] Warning: failed to load persisted session %s: %v", id, err)
			continue
		}
		loadedCount++
	}

	if loadedCount > 0 {
		log.Printf("[SESSION] Loaded %d persisted sessions from storage", loadedCount)
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()

	errorCount := 0
	for _, session := range sessions {
		if err := m.persistence.Save(session); err != nil {
			log.Printf("[SESSION] Warning: failed to save session %s: %v", session.ID, err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}
