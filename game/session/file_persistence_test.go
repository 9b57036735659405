package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/config"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager) {
	t.Helper()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(t.TempDir(), configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, configManager
}

func newBareSession(t *testing.T, id string, configManager *config.Manager) *service.Session {
	t.Helper()

	gameConfig, err := configManager.LoadConfig("classic")
	if err != nil {
		t.Fatalf("Failed to load classic config: %v", err)
	}
	gameEngine, err := engine.NewEngine(gameConfig)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	return &service.Session{
		ID:             id,
		ConfigName:     "classic",
		Engine:         gameEngine,
		Config:         gameConfig,
		Render:         service.RenderOptions{Speed: 0.35, NightMode: true},
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
}

func TestFilePersistence(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newBareSession(t, "test1", configManager)

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loadedSession.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loadedSession.ID)
		}
		if loadedSession.ConfigName != "classic" {
			t.Errorf("Expected config name classic, got %s", loadedSession.ConfigName)
		}
		if loadedSession.Config.Name != session.Config.Name {
			t.Errorf("Expected level %s, got %s", session.Config.Name, loadedSession.Config.Name)
		}
		if loadedSession.Render != session.Render {
			t.Errorf("Expected render options %+v, got %+v", session.Render, loadedSession.Render)
		}
		if loadedSession.Van != nil || loadedSession.Scene != nil {
			t.Error("Loaded session should not be drawn by the persistence layer")
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		out, err := session.Engine.Step(engine.Forward, 0)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if !out.Success {
			t.Skip("Cannot test state persistence without successful move")
		}

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		if loadedSession.Engine.GetVanPosition() != session.Engine.GetVanPosition() {
			t.Errorf("Van position not persisted correctly")
		}
		if loadedSession.Engine.GetHeading() != session.Engine.GetHeading() {
			t.Errorf("Heading not persisted correctly")
		}
		if len(loadedSession.Engine.GetMoveHistory()) != len(session.Engine.GetMoveHistory()) {
			t.Errorf("Move history not persisted correctly")
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		session2 := newBareSession(t, "test2", configManager)
		if err := persistence.Save(session2); err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}

		sessionIDs, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		found := make(map[string]bool)
		for _, id := range sessionIDs {
			found[id] = true
		}
		if !found["test1"] || !found["test2"] {
			t.Errorf("Expected sessions not found in list: %v", sessionIDs)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}

		if persistence.Exists("test2") {
			t.Error("Session should not exist after delete")
		}

		if _, err := persistence.Load("test2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound loading deleted session, got %v", err)
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		if _, err := persistence.Load("nonexistent"); err == nil {
			t.Error("Should get error when loading non-existent session")
		}
		if err := persistence.Delete("nonexistent"); err == nil {
			t.Error("Should get error when deleting non-existent session")
		}
		if err := persistence.Save(nil); err == nil {
			t.Error("Should get error when saving nil session")
		}
		if persistence.Exists("../escape") {
			t.Error("Paths outside the sessions directory should never exist")
		}
	})
}

func TestFilePersistenceUnknownConfig(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newBareSession(t, "orphan", configManager)
	session.ConfigName = "retired_level"

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	_, err := persistence.Load("orphan")
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound for a removed level, got %v", err)
	}
}

func TestFilePersistenceFileStructure(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newBareSession(t, "File_Test", configManager)

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	expectedFile := filepath.Join(persistence.sessionsDir, "file_test.json")
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("Expected file %s: %v", expectedFile, err)
	}

	content := string(data)
	expectedFields := []string{`"id"`, `"config_name"`, `"speed"`, `"night_mode"`, `"created_at"`, `"game_state"`}
	for _, field := range expectedFields {
		if !strings.Contains(content, field) {
			t.Errorf("Session file should contain field %s", field)
		}
	}
}

func TestFilePersistenceLeavesNoTempFiles(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newBareSession(t, "atomic", configManager)

	for i := 0; i < 3; i++ {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(persistence.sessionsDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "atomic.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only atomic.json, got %v", names)
	}
}

func TestFilePersistenceListAll(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	for _, id := range []string{"zz01", "aa02"} {
		if err := persistence.Save(newBareSession(t, id, configManager)); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	// A save in progress, a stray file and a directory are not sessions
	for _, name := range []string{".zz01.json.123", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(persistence.sessionsDir, name), []byte("{}"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(persistence.sessionsDir, "dir.json"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	ids, err := persistence.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if strings.Join(ids, ",") != "aa02,zz01" {
		t.Errorf("Expected [aa02 zz01], got %v", ids)
	}
}

func TestFilePersistenceInvalidIDs(t *testing.T) {
	persistence, configManager := newTestPersistence(t)

	for _, id := range []string{"", "..", ".hidden", "a/b", `a\b`} {
		session := newBareSession(t, id, configManager)
		if err := persistence.Save(session); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Save(%q): expected ErrInvalidSessionID, got %v", id, err)
		}
		if _, err := persistence.Load(id); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Load(%q): expected ErrInvalidSessionID, got %v", id, err)
		}
		if persistence.Exists(id) {
			t.Errorf("Exists(%q) should be false", id)
		}
	}
}

func TestFilePersistenceVersions(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newBareSession(t, "ver", configManager)
	if err := persistence.Save(session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(persistence.sessionsDir, "ver.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"version": 1`) {
		t.Errorf("Expected version 1 in session file:\n%s", data)
	}

	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"unversioned file", `"version": 0`, false},
		{"newer format", `"version": 2`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edited := strings.Replace(string(data), `"version": 1`, tt.version, 1)
			if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			_, err := persistence.Load("ver")
			if (err != nil) != tt.wantErr {
				t.Errorf("Load: wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
