// Command solve plays a level on a running van route server. It creates (or
// resumes) a session, resets it, plans a route that delivers to every house
// and runs the program through the HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

// Client talks to the game server's REST API for a single session.
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// CreateSession starts a session on level; an empty level uses the server's
// default.
func (c *Client) CreateSession(ctx context.Context, level string, speed float64) (*service.SessionInfo, error) {
	body := map[string]any{}
	if level != "" {
		body["config_id"] = level
	}
	if speed > 0 {
		body["speed"] = speed
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, err
	}
	c.sessionID = info.ID
	return &info, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+c.sessionID+"/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+c.sessionID+"/reset", nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

// Run sends program as one run request.
func (c *Client) Run(ctx context.Context, program []engine.Action) (*service.RunResult, error) {
	names := make([]string, len(program))
	for i, a := range program {
		names[i] = string(a)
	}

	var result service.RunResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+c.sessionID+"/run", map[string]any{"program": names}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type solveOptions struct {
	serverURL   string
	level       string
	session     string
	sessionFile string
	speed       float64
	dryRun      bool
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "solve",
		Usage: "Plan and drive a delivery route on a van route server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("API_URL")},
			&cli.StringFlag{Name: "level", Aliases: []string{"l"}, Usage: "Level to play (e.g. easy, classic)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "File remembering the last session ID (empty to disable)"},
			&cli.FloatFlag{Name: "speed", Usage: "Animation speed for a new session"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the plan without running it"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return solve(ctx, os.Stdout, solveOptions{
				serverURL:   cmd.String("url"),
				level:       cmd.String("level"),
				session:     cmd.String("continue"),
				sessionFile: cmd.String("session-file"),
				speed:       cmd.Float("speed"),
				dryRun:      cmd.Bool("dry-run"),
			})
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// openSession resumes opts.session (or the one in the session file) when it
// still exists and otherwise creates a new session.
func openSession(ctx context.Context, client *Client, opts solveOptions) error {
	savedID := opts.session
	if savedID == "" && opts.sessionFile != "" {
		if data, err := os.ReadFile(opts.sessionFile); err == nil {
			savedID = string(bytes.TrimSpace(data))
		}
	}

	if savedID != "" {
		client.sessionID = savedID
		_, err := client.GetState(ctx)
		if err == nil {
			log.Printf("[SOLVE] Resuming session: %s", savedID)
			return nil
		}
		log.Printf("[SOLVE] Failed to resume session %s (may be expired): %v", savedID, err)
	}

	info, err := client.CreateSession(ctx, opts.level, opts.speed)
	if err != nil {
		return err
	}
	log.Printf("[SOLVE] Session created: %s (%s)", info.ID, info.ConfigName)

	if opts.sessionFile != "" {
		if err := os.WriteFile(opts.sessionFile, []byte(info.ID), 0644); err != nil {
			log.Printf("[SOLVE] Warning: failed to save session ID: %v", err)
		}
	}
	return nil
}

func solve(ctx context.Context, w io.Writer, opts solveOptions) error {
	client := NewClient(opts.serverURL)
	if err := openSession(ctx, client, opts); err != nil {
		return err
	}

	state, err := client.Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	program, err := NewPlanner(state).Plan()
	if errors.Is(err, ErrUnreachable) {
		fmt.Fprintf(w, "Warning: %v\n", err)
	} else if err != nil {
		return err
	}
	fmt.Fprintf(w, "Session %s: %d actions planned from (%d,%d) heading %s\n",
		client.sessionID, len(program), state.VanPos.X, state.VanPos.Y, state.Heading)
	fmt.Fprintf(w, "Program: %s\n", joinProgram(program))

	if opts.dryRun || len(program) == 0 {
		return nil
	}

	executed := 0
	for _, run := range chunk(program, engine.MaxProgramLength) {
		result, err := client.Run(ctx, run)
		if err != nil {
			return err
		}
		executed += result.ActionsExecuted
		state = result.GameState

		switch result.StopReasonCode {
		case "", "victory":
		default:
			return fmt.Errorf("run stopped: %s on action %d (%s)",
				result.StopReasonCode, executed, result.StoppedReason)
		}
	}

	if state != nil && state.Victory {
		fmt.Fprintf(w, "🎉 VICTORY! Score %d after %d actions\n", state.Score, executed)
		return nil
	}
	return fmt.Errorf("program finished without victory after %d actions", executed)
}

func joinProgram(program []engine.Action) string {
	names := make([]string, len(program))
	for i, a := range program {
		names[i] = string(a)
	}
	return strings.Join(names, ",")
}
