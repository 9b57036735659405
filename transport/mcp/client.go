package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/service"
)

var actionNames = []string{"forward", "turn_left", "turn_right", "turn_around", "wait"}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Van Route",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Van Route - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Program the delivery van to visit every destination (D) on the map.
The van drives on roads only. It has a position and a heading (N/E/S/W).

AVAILABLE TOOLS:
- create_session: Create a new session on a level
- list_sessions / get_session: Inspect sessions
- game_state: Current map, van position and heading
- act: Run one action (forward, turn_left, turn_right, turn_around, wait)
- run_program: Run a list of actions; stops at the first crash or collision
- reset_game: Put the van back on the start square
- set_speed: Change how fast the van is animated
- move_history: View past actions
- list_configs: List levels
- describe_cell: What is at (x, y)
- game_instructions: Full rules

NOTE: The 'intent' parameter on act/run_program serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intentProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Brief explanation of what you expect the van to do (serves as a rubber duck to help explain your reasoning)",
	}
}

func resetProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Reset to the start square first",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional level selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Level to play (see list_configs). Optional",
				},
				"speed": map[string]interface{}{
					"type":        "number",
					"description": "Van speed in distance units per millisecond. Optional",
				},
				"night_mode": map[string]interface{}{
					"type":        "boolean",
					"description": "Draw the van at night. Optional",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "act",
		Description: "Run a single action on the van",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        actionNames,
					"description": "Action to perform",
				},
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Resize the van while it moves (1 = normal size). Optional",
				},
				"intent": intentProperty(),
				"reset":  resetProperty(),
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleAct)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_program",
		Description: "Run a list of actions. Execution stops at the first crash or collision",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"program": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": actionNames,
					},
					"description": "Actions in order",
				},
				"intent": intentProperty(),
				"reset":  resetProperty(),
			},
			Required: []string{"session_id", "program"},
		},
	}, c.handleRunProgram)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to initial state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_speed",
		Description: "Change how fast the van is animated",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"speed": map[string]interface{}{
					"type":        "number",
					"description": "Distance units per millisecond, greater than 0",
				},
			},
			Required: []string{"session_id", "speed"},
		},
	}, c.handleSetSpeed)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the history of actions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (1-based)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Actions per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe the cell at (x, y). y=0 is the bottom row",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Column (0-based, from the left)",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Row (0-based, from the bottom)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if speed, ok := args["speed"].(float64); ok {
		body["speed"] = speed
	}
	if night, ok := args["night_mode"].(bool); ok {
		body["night_mode"] = night
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nSpeed: %g\n\n%s",
		session.ID, session.ConfigName, session.Speed, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&result, "- %s (Config: %s, Created: %s", s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
		if s.Running {
			result.WriteString(", animating")
		}
		result.WriteString(")\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleAct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/act")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, _ := args["action"].(string)
	reset, _ := args["reset"].(bool)

	body := map[string]interface{}{
		"action": action,
		"reset":  reset,
	}
	if scale, ok := args["scale"].(float64); ok {
		body["scale"] = scale
	}

	var result service.ActResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActResult(&result)), nil
}

func (c *Client) handleRunProgram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, _ := args["program"].([]interface{})
	reset, _ := args["reset"].(bool)

	program := make([]string, 0, len(raw))
	for _, a := range raw {
		if action, ok := a.(string); ok {
			program = append(program, action)
		}
	}

	body := map[string]interface{}{
		"program": program,
		"reset":   reset,
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleSetSpeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/speed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	speed, _ := args["speed"].(float64)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "PUT", path, map[string]float64{"speed": speed}, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s speed set to %g", session.ID, session.Speed)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := args["page"].(float64); ok {
		query.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		query.Set("limit", fmt.Sprint(int(limit)))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&result, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Destinations: %d",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.GridWidth, cfg.GridHeight, cfg.Destinations)
		if cfg.NightMode {
			result.WriteString(", night")
		}
		if cfg.CrashEndsRun {
			result.WriteString(", crashes end the run")
		}
		result.WriteString("\n\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Van Route - Complete Instructions

GAME OBJECTIVE:
Drive the delivery van to every destination (D). Each destination counts
once. Visit all of them to win.

GRID LEGEND:
• R = Road
• H = Start square (a road)
• D = Destination (a road); ✓ once delivered
• C = Obstacle, a cow standing on the road
• B = Building
• ^ > v < = The van, pointing where it is heading

COORDINATES:
x grows to the right and y grows UPWARDS. (0,0) is the bottom-left cell,
so the first line of the printed map is the highest y.

ACTIONS:
• forward: drive one square in the heading direction
• turn_left / turn_right: drive one square to that side, ending up facing it
• turn_around: U-turn onto the square behind
• wait: stay put

CRASHES AND COLLISIONS:
• Driving into a building or off the map is a crash. The van stays where it
  was. On some levels a crash ends the run; reset to try again.
• Driving into the cow is a collision. The van bumps and stays put, but the
  run goes on.
• run_program stops at the first crash or collision.

ANIMATION:
Every action is animated. The response tells you how long it takes
(duration_ms). A program's animations play one after another; its total
duration is reported up front. A new act or run cancels what is still
playing.

STRATEGY:
• Read the map row by row and note the van's heading before planning.
• Plan with turns: a turn also moves the van one square.
• Use describe_cell when unsure what a square is.
• Use the intent parameter to write down what you expect to happen.

Good luck with your deliveries!`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	pos := engine.Position{X: int(x), Y: int(y)}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !state.InBounds(pos) {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %dx%d",
			pos.X, pos.Y, state.Width(), state.Height())), nil
	}

	return mcp.NewToolResultText(describeCell(&state, pos)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	running := ""
	if session.Running {
		running = " (animating)"
	}
	return fmt.Sprintf("Session: %s%s\nConfig: %s\nSpeed: %g\nCreated: %s\n\n%s",
		session.ID, running, session.ConfigName, session.Speed,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func vanChar(h engine.Heading) string {
	switch h {
	case engine.North:
		return "^"
	case engine.South:
		return "v"
	case engine.West:
		return "<"
	}
	return ">"
}

func cellChar(cell engine.Cell) string {
	switch cell.Type {
	case engine.Road:
		return "R"
	case engine.Start:
		return "H"
	case engine.Destination:
		if cell.Visited {
			return "✓"
		}
		return "D"
	case engine.Obstacle:
		return "C"
	}
	return "B"
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Position: (%d,%d) | Heading: %s | Score: %d | Moves: %d\n\n",
		state.VanPos.X, state.VanPos.Y, state.Heading, state.Score, state.TotalMoves)

	for y := state.Height() - 1; y >= 0; y-- {
		fmt.Fprintf(&result, "%2d ", y)
		for x := 0; x < state.Width(); x++ {
			p := engine.Position{X: x, Y: y}
			if p == state.VanPos {
				result.WriteString(vanChar(state.Heading))
			} else {
				result.WriteString(cellChar(*state.CellAt(p)))
			}
		}
		result.WriteString("\n")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\n%s\n", state.Message)
	}

	if state.Victory {
		result.WriteString("\n🎉 VICTORY!\n")
	} else if state.GameOver {
		result.WriteString("\n💀 RUN OVER - reset to try again\n")
	} else if state.Crashed {
		result.WriteString("\nThe van crashed on its last move.\n")
	}

	return result.String()
}

func formatActResult(result *service.ActResult) string {
	var out strings.Builder
	o := result.Outcome
	if result.Success {
		fmt.Fprintf(&out, "✓ %s: (%d,%d) -> (%d,%d), heading %s\n", o.Action, o.From.X, o.From.Y, o.To.X, o.To.Y, o.HeadingAfter)
	} else {
		fmt.Fprintf(&out, "✗ %s failed at (%d,%d)\n", o.Action, o.From.X, o.From.Y)
	}
	fmt.Fprintf(&out, "Maneuver: %s (%.0fms)\n", o.Maneuver, result.DurationMs)
	if result.Message != "" {
		fmt.Fprintf(&out, "%s\n", result.Message)
	}
	if len(result.PossibleActions) > 0 {
		fmt.Fprintf(&out, "Possible actions: %s\n", joinActions(result.PossibleActions))
	}
	out.WriteString("\n")
	out.WriteString(formatGameState(result.GameState))
	return out.String()
}

func formatRunResult(result *service.RunResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Executed %d/%d actions (%.0fms of animation)\n",
		result.ActionsExecuted, result.RequestedActions, result.TotalDurationMs)
	fmt.Fprintf(&out, "Start: (%d,%d) End: (%d,%d) Score: %+d\n",
		result.StartPos.X, result.StartPos.Y, result.EndPos.X, result.EndPos.Y, result.ScoreDelta)

	if result.StopReasonCode != "" {
		fmt.Fprintf(&out, "Stopped: %s", result.StopReasonCode)
		if result.StoppedOnAction > 0 {
			fmt.Fprintf(&out, " on action %d", result.StoppedOnAction)
		}
		if result.StoppedReason != "" {
			fmt.Fprintf(&out, " (%s)", result.StoppedReason)
		}
		out.WriteString("\n")
	}

	if len(result.Steps) > 0 {
		out.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			mark := "✓"
			if !s.Success {
				mark = "✗"
			}
			fmt.Fprintf(&out, "%s %d. %s (%d,%d)->(%d,%d) %s->%s %s @%.0fms",
				mark, s.Idx, s.Action, s.From.X, s.From.Y, s.To.X, s.To.Y,
				s.HeadingBefore, s.HeadingAfter, s.Maneuver, s.StartMs)
			if s.Delivered {
				out.WriteString(" delivered")
			}
			out.WriteString("\n")
		}
	}

	if len(result.PossibleActions) > 0 {
		fmt.Fprintf(&out, "Possible actions: %s\n", joinActions(result.PossibleActions))
	}
	out.WriteString("\n")
	out.WriteString(formatGameState(result.GameState))
	return out.String()
}

func joinActions(actions []engine.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func formatHistory(history *service.HistoryResponse) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Move History (Page %d/%d, %d total):\n\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, m := range history.Moves {
		status := "✓"
		if !m.Success {
			status = "✗"
		}
		fmt.Fprintf(&out, "%s #%d %s (%d,%d)->(%d,%d) %s->%s %s\n",
			status, m.MoveNumber, m.Action,
			m.FromPosition.X, m.FromPosition.Y, m.ToPosition.X, m.ToPosition.Y,
			m.HeadingBefore, m.HeadingAfter, m.Maneuver)
	}
	return out.String()
}

func describeCell(state *engine.GameState, pos engine.Position) string {
	cell := state.CellAt(pos)

	var out strings.Builder
	fmt.Fprintf(&out, "Cell (%d,%d): %s [%s]\n", pos.X, pos.Y, cell.Type, cellChar(*cell))
	if pos == state.VanPos {
		fmt.Fprintf(&out, "The van is here, heading %s\n", state.Heading)
	}
	switch cell.Type {
	case engine.Destination:
		if cell.Visited {
			out.WriteString("Already delivered\n")
		} else {
			out.WriteString("Not delivered yet\n")
		}
	case engine.Obstacle:
		out.WriteString("Driving here is a collision; the van bumps and stays put\n")
	case engine.Building:
		out.WriteString("Driving here is a crash\n")
	default:
		out.WriteString("Drivable\n")
	}

	out.WriteString("Neighbours:")
	for _, h := range []engine.Heading{engine.North, engine.East, engine.South, engine.West} {
		n := pos.Add(h)
		fmt.Fprintf(&out, " %s=%s", h, cellChar(*state.CellAt(n)))
	}
	out.WriteString("\n")
	return out.String()
}
