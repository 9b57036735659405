// Package api provides the HTTP REST API for the van route game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({config_id, speed, night_mode})
//   - GET /api/sessions - List sessions (sort, order, limit)
//   - GET /api/sessions/unified - Sessions with their state, for dashboards
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current route state
//   - POST /api/sessions/{id}/act - One action ({action, scale, reset})
//   - POST /api/sessions/{id}/run - A program of actions ({program, reset})
//   - POST /api/sessions/{id}/reset - Back to the start square
//   - PUT /api/sessions/{id}/speed - Van speed in units per millisecond
//   - GET /api/sessions/{id}/scene - Sprites currently drawn, with the geometry
//   - GET /api/sessions/{id}/history - Move history (page, limit, order)
//
// Configuration:
//   - GET /api/configs, POST /api/configs, GET /api/configs/{name}
//   - GET /api/geometry
//   - GET /api/preferences, PUT /api/preferences
//
// Act and run responses carry the maneuver each action produced and how
// long its animation takes. A run returns as soon as the engine has
// evaluated the program; the animations then play out on the session's
// scene and their draw commands reach browser clients over /ws.
//
// Errors are JSON objects with an "error" field. Unknown sessions and
// levels are 404, invalid input is 400 and acting after the run is over
// is 409.
package api
