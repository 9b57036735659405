package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// GeometryFile is the name of the optional board geometry file in the config directory.
const GeometryFile = "geometry.yaml"

// Manager handles level configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	geometry      animation.Geometry
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
		geometry:  animation.DefaultGeometry(),
	}

	if err := m.loadGeometry(); err != nil {
		return nil, err
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a configuration by name
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

// loadLocked reads and caches a config file. Callers hold the write lock.
func (m *Manager) loadLocked(name string) (*engine.GameConfig, error) {
	if config, exists := m.configs[name]; exists {
		return config, nil
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, ErrConfigNotFound
	}

	configPath := filepath.Join(m.configDir, name+".json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = &config
	return &config, nil
}

// ListConfigs returns information about all available configurations,
// sorted by config ID. Invalid files are skipped.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	names, err := m.configNames()
	if err != nil {
		return nil, err
	}

	configs := make([]*service.ConfigInfo, 0, len(names))
	for _, name := range names {
		config, err := m.LoadConfig(name)
		if err != nil {
			continue
		}
		configs = append(configs, Describe(name, config))
	}

	return configs, nil
}

// Describe summarises a level for listings.
func Describe(configID string, config *engine.GameConfig) *service.ConfigInfo {
	state := engine.InitGameStateFromConfig(config)
	return &service.ConfigInfo{
		Filename:     configID + ".json",
		ConfigID:     configID,
		Name:         config.Name,
		Description:  config.Description,
		GridWidth:    config.GridWidth,
		GridHeight:   config.GridHeight,
		Destinations: engine.CountTotalDestinations(state.Grid),
		NightMode:    config.NightMode,
		CrashEndsRun: config.CrashEndsRun,
	}
}

func (m *Manager) configNames() ([]string, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// ConfigID returns the identifier of a loaded configuration, falling back to
// its display name when it did not come from this manager.
func (m *Manager) ConfigID(config *engine.GameConfig) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.configs {
		if c == config {
			return id
		}
	}
	for id, c := range m.configs {
		if c.Name == config.Name {
			return id
		}
	}
	return config.Name
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// Geometry returns the board geometry read from geometry.yaml, or the
// defaults when the directory has none.
func (m *Manager) Geometry() animation.Geometry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.geometry
}

// RefreshCache reloads the geometry and all cached configurations from disk
func (m *Manager) RefreshCache() error {
	if err := m.loadGeometry(); err != nil {
		return err
	}

	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

func (m *Manager) loadGeometry() error {
	path := filepath.Join(m.configDir, GeometryFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	geo, err := animation.LoadGeometry(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, GeometryFile, err)
	}

	m.mu.Lock()
	m.geometry = geo
	m.mu.Unlock()
	return nil
}

// loadDefaultConfig picks classic.json, then the first valid level, then the
// built-in level.
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig("classic")
	if err != nil {
		config = engine.DefaultConfig()
		if infos, listErr := m.ListConfigs(); listErr == nil && len(infos) > 0 {
			if first, loadErr := m.LoadConfig(infos[0].ConfigID); loadErr == nil {
				config = first
			}
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig saves a configuration to disk
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid config name %q", ErrInvalidConfig, name)
	}

	configPath := filepath.Join(m.configDir, name+".json")

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	return nil
}
