// Package settings persists player preferences shared by every session:
// default animation speed, night mode and collision effects.
package settings

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// AppName is the gdata application directory preferences are stored under.
const AppName = "vanroute"

// DefaultSpeed moves the van one grid space in half a second.
const DefaultSpeed = 0.2

const (
	preferencesObject   = "preferences"
	preferencesProperty = "global"
)

var ErrInvalidPreferences = errors.New("invalid preferences")

// Preferences are the player-facing defaults applied to new sessions.
type Preferences struct {
	// Speed is in distance units per millisecond.
	Speed           float64 `yaml:"speed" json:"speed"`
	NightMode       bool    `yaml:"nightMode" json:"night_mode"`
	WreckageEffects bool    `yaml:"wreckageEffects" json:"wreckage_effects"`
	DefaultLevel    string  `yaml:"defaultLevel,omitempty" json:"default_level,omitempty"`
}

// DefaultPreferences returns the preferences used before anything is saved.
func DefaultPreferences() Preferences {
	return Preferences{
		Speed:           DefaultSpeed,
		WreckageEffects: true,
	}
}

// Validate rejects speeds no animation can be timed with.
func (p Preferences) Validate() error {
	if p.Speed <= 0 || math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) {
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidPreferences, p.Speed)
	}
	return nil
}

// Manager loads and saves Preferences. A nil gdata manager keeps them in memory only.
type Manager struct {
	store *gdata.Manager

	mu    sync.RWMutex
	prefs Preferences
}

// Open creates a Manager backed by the per-user gdata directory of appName.
func Open(appName string) (*Manager, error) {
	store, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open preference storage: %w", err)
	}
	return NewManager(store), nil
}

// NewManager creates a Manager and loads any saved preferences.
func NewManager(store *gdata.Manager) *Manager {
	m := &Manager{
		store: store,
		prefs: DefaultPreferences(),
	}
	if err := m.Load(); err != nil {
		log.Printf("[Preferences] Warning: failed to load preferences: %v (using defaults)", err)
	}
	return m
}

// Load reads the saved preferences. Missing storage keeps the defaults.
func (m *Manager) Load() error {
	if m.store == nil || !m.store.ObjectPropExists(preferencesObject, preferencesProperty) {
		m.set(DefaultPreferences())
		return nil
	}

	data, err := m.store.LoadObjectProp(preferencesObject, preferencesProperty)
	if err != nil {
		m.set(DefaultPreferences())
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	loaded := DefaultPreferences()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		m.set(DefaultPreferences())
		return fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		m.set(DefaultPreferences())
		return err
	}

	m.set(loaded)
	return nil
}

// Get returns the current preferences.
func (m *Manager) Get() Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs
}

// Update validates and stores p, persisting it when storage is available.
func (m *Manager) Update(p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.set(p)
	return m.Save()
}

// Save writes the current preferences to storage.
func (m *Manager) Save() error {
	if m.store == nil {
		return nil
	}

	data, err := yaml.Marshal(m.Get())
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := m.store.SaveObjectProp(preferencesObject, preferencesProperty, data); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

func (m *Manager) set(p Preferences) {
	m.mu.Lock()
	m.prefs = p
	m.mu.Unlock()
}
