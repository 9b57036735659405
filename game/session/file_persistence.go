package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

const sessionFileExt = ".json"

// FilePersistence keeps one JSON file per session in a directory. Files are
// replaced atomically, so readers never see a half-written session.
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
}

// NewFilePersistence creates sessionsDir if needed. Levels are resolved
// through configManager when sessions are loaded.
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
	}, nil
}

// Save writes the session's engine state and render options.
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	path, err := fp.path(session.ID)
	if err != nil {
		return err
	}

	record := PersistedSessionData{
		Version:         persistedVersion,
		ID:              session.ID,
		ConfigName:      session.ConfigName,
		Speed:           session.Render.Speed,
		NightMode:       session.Render.NightMode,
		WreckageEffects: session.Render.WreckageEffects,
		CreatedAt:       session.CreatedAt,
		LastAccessedAt:  session.LastAccessedAt,
		GameState:       session.Engine.GetState(),
	}
	if record.ConfigName == "" {
		record.ConfigName = fp.configManager.ConfigID(session.Config)
	}
	// The van's speed changes with SetSpeed without touching the options
	if session.Van != nil {
		record.Speed = session.Van.Speed()
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load rebuilds a session's engine from its file. The van is not drawn.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	path, err := fp.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var record PersistedSessionData
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	if record.Version > persistedVersion {
		return nil, fmt.Errorf("session %s was saved by a newer version (format %d)", id, record.Version)
	}
	if record.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", id)
	}

	level, err := fp.configManager.LoadConfig(record.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", record.ConfigName, err)
	}
	eng, err := engine.NewEngine(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.SetState(record.GameState); err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	return &service.Session{
		ID:         record.ID,
		ConfigName: record.ConfigName,
		Engine:     eng,
		Config:     level,
		Render: service.RenderOptions{
			Speed:           record.Speed,
			NightMode:       record.NightMode,
			WreckageEffects: record.WreckageEffects,
		},
		CreatedAt:      record.CreatedAt,
		LastAccessedAt: record.LastAccessedAt,
	}, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	path, err := fp.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the IDs of every stored session, sorted.
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		// Dot files are saves in progress
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, sessionFileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether a session file is stored for id
func (fp *FilePersistence) Exists(id string) bool {
	path, err := fp.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// path maps a session ID to its file. IDs are case-insensitive and may not
// leave the sessions directory.
func (fp *FilePersistence) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return filepath.Join(fp.sessionsDir, strings.ToLower(id)+sessionFileExt), nil
}
