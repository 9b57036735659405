// Package mcp exposes the van route game to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API (see package api), so agents and browser clients share sessions and
// see the same animations.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, describe_cell, move_history
//   - act: one action, with an optional scale for the van while it moves
//   - run_program: a list of actions, stopped at the first crash or collision
//   - reset_game, set_speed
//   - list_configs, game_instructions
//
// Maps are printed with the highest row first. y grows upwards and the van
// is drawn as an arrow pointing along its heading.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
