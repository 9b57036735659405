package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/vanroute/api"
	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/config"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
	"github.com/wricardo/mcp-training/vanroute/game/session"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
)

// setupGameServer serves the real API over the shipped levels, with
// animations on a manual clock.
func setupGameServer(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Skipf("Skipping test - configs directory not found: %v", err)
	}

	clock := animation.NewManualClock(time.Unix(0, 0))
	sessions := session.NewManager(
		session.WithGeometry(configs.Geometry()),
		session.WithClock(clock),
	)
	game := service.NewGameService(sessions, configs,
		service.WithClock(clock),
		service.WithPreferences(settings.NewManager(nil)),
	)

	server := httptest.NewServer(api.NewServer(game, nil))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", client.baseURL)
	}
	if client.client.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", client.client.Timeout)
	}
}

func TestClient_CreateSessionRequest(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(service.SessionInfo{ID: "ab12", ConfigName: "easy"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	info, err := client.CreateSession(context.Background(), "easy", 0.5)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ID != "ab12" || client.sessionID != "ab12" {
		t.Errorf("Expected session ab12, got %s (client %s)", info.ID, client.sessionID)
	}
	if body["config_id"] != "easy" || body["speed"] != 0.5 {
		t.Errorf("Unexpected request body: %v", body)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Session not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "nope"
	_, err := client.GetState(context.Background())
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "Session not found") {
		t.Errorf("Expected status and body in error, got %v", err)
	}
}

func TestSolve(t *testing.T) {
	server := setupGameServer(t)

	levels := []string{"easy", "classic", "cow_crossing", "night_delivery"}
	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			var out bytes.Buffer
			err := solve(context.Background(), &out, solveOptions{
				serverURL: server.URL,
				level:     level,
			})
			if err != nil {
				t.Fatalf("solve %s: %v\n%s", level, err, out.String())
			}
			if !strings.Contains(out.String(), "VICTORY") {
				t.Errorf("Expected victory, got:\n%s", out.String())
			}
		})
	}
}

func TestSolve_DryRun(t *testing.T) {
	server := setupGameServer(t)

	var out bytes.Buffer
	err := solve(context.Background(), &out, solveOptions{
		serverURL: server.URL,
		level:     "easy",
		dryRun:    true,
	})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "5 actions planned from (0,1) heading E") {
		t.Errorf("Unexpected plan summary:\n%s", output)
	}
	if !strings.Contains(output, "Program: forward,forward,forward,forward,forward") {
		t.Errorf("Unexpected program:\n%s", output)
	}
	if strings.Contains(output, "VICTORY") {
		t.Error("Dry run should not drive the van")
	}
}

func TestSolve_ResumesSavedSession(t *testing.T) {
	server := setupGameServer(t)
	sessionFile := filepath.Join(t.TempDir(), ".session")

	opts := solveOptions{serverURL: server.URL, level: "easy", sessionFile: sessionFile}
	if err := solve(context.Background(), &bytes.Buffer{}, opts); err != nil {
		t.Fatalf("first solve: %v", err)
	}
	saved, err := os.ReadFile(sessionFile)
	if err != nil {
		t.Fatalf("Expected session file: %v", err)
	}

	var out bytes.Buffer
	if err := solve(context.Background(), &out, opts); err != nil {
		t.Fatalf("second solve: %v", err)
	}
	if !strings.Contains(out.String(), "Session "+string(saved)+":") {
		t.Errorf("Expected session %s to be resumed, got:\n%s", saved, out.String())
	}
}

func TestSolve_UnknownLevel(t *testing.T) {
	server := setupGameServer(t)

	err := solve(context.Background(), &bytes.Buffer{}, solveOptions{serverURL: server.URL, level: "nowhere"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 error, got %v", err)
	}
}

func TestJoinProgram(t *testing.T) {
	got := joinProgram([]engine.Action{engine.Forward, engine.TurnLeft})
	if got != "forward,turn_left" {
		t.Errorf("Expected forward,turn_left, got %s", got)
	}
}
