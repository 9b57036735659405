package session

import (
	"testing"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

func TestManagerWithPersistence(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	clock := animation.NewManualClock(time.Unix(0, 0))
	manager := NewManagerWithPersistence(persistence, WithClock(clock))

	gameConfig, err := configManager.LoadConfig("classic")
	if err != nil {
		t.Fatalf("Failed to load classic config: %v", err)
	}
	render := service.RenderOptions{Speed: 0.25, WreckageEffects: true}

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", "classic", gameConfig, render)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}

		loadedSession, err := persistence.Load(session.ID)
		if err != nil {
			t.Fatalf("Failed to load auto-saved session: %v", err)
		}
		if loadedSession.Render.Speed != 0.25 {
			t.Errorf("Expected persisted speed 0.25, got %v", loadedSession.Render.Speed)
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence, WithClock(clock))

		session, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from persistence: %v", err)
		}
		if session.ID != "auto1" {
			t.Errorf("Expected ID auto1, got %s", session.ID)
		}
		if session.Van == nil || session.Scene == nil {
			t.Fatal("Restored session should be drawn")
		}
		if session.Van.Speed() != 0.25 {
			t.Errorf("Expected restored van speed 0.25, got %v", session.Van.Speed())
		}

		session2, err := manager2.Get("AUTO1")
		if err != nil {
			t.Fatalf("Failed to get session from memory: %v", err)
		}
		if session2 != session {
			t.Error("Session should be cached in memory after loading from persistence")
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		originalPos := session.Engine.GetVanPosition()
		out, err := session.Engine.Step(engine.Forward, 0)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if !out.Success {
			t.Skip("Cannot test persistence without successful move")
		}

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		manager3 := NewManagerWithPersistence(persistence, WithClock(clock))
		loadedSession, err := manager3.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load session after manual save: %v", err)
		}

		if loadedSession.Engine.GetVanPosition() == originalPos {
			t.Error("Van position changes should be persisted")
		}
		if len(loadedSession.Engine.GetMoveHistory()) == 0 {
			t.Error("Move history should be persisted")
		}

		// The restored van is drawn where the engine left it, not at the start.
		restored := loadedSession.Scene.Snapshot()[0].Transform
		fresh, err := manager3.Create("fresh", "classic", gameConfig, render)
		if err != nil {
			t.Fatalf("Failed to create fresh session: %v", err)
		}
		if restored == fresh.Scene.Snapshot()[0].Transform {
			t.Error("Restored van should be placed at the engine position")
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		session, err := manager.Create("delete_test", "classic", gameConfig, render)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should exist in persistence")
		}

		if err := manager.Delete(session.ID); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}

		if persistence.Exists(session.ID) {
			t.Error("Session should be removed from persistence on delete")
		}
		if _, err := manager.Get(session.ID); err == nil {
			t.Error("Should not be able to get deleted session")
		}
	})

	t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
		ids := []string{"startup1", "startup2", "startup3"}
		for _, id := range ids {
			if _, err := manager.Create(id, "classic", gameConfig, render); err != nil {
				t.Fatalf("Failed to create session %s: %v", id, err)
			}
		}

		manager4 := NewManagerWithPersistence(persistence, WithClock(clock))
		if err := manager4.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}

		for _, id := range ids {
			session, err := manager4.Get(id)
			if err != nil {
				t.Errorf("Failed to get session %s after loading persisted sessions: %v", id, err)
				continue
			}
			if session.ID != id {
				t.Errorf("Expected ID %s, got %s", id, session.ID)
			}
		}

		if got := manager4.Count(); got < len(ids) {
			t.Errorf("Expected at least %d sessions, got %d", len(ids), got)
		}
	})

	t.Run("Save All Sessions", func(t *testing.T) {
		session, err := manager.Get("startup1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if err := session.Van.SetSpeed(0.5); err != nil {
			t.Fatalf("SetSpeed failed: %v", err)
		}

		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("Failed to save all sessions: %v", err)
		}

		loaded, err := persistence.Load("startup1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Render.Speed != 0.5 {
			t.Errorf("Expected the van's current speed to be persisted, got %v", loaded.Render.Speed)
		}
	})
}
