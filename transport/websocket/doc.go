// Package websocket streams a session's drawing and game events to browsers.
//
// A central Hub owns every connection. Clients join a session with the
// session (or sessionId) query parameter and receive one JSON message per
// frame for that session only:
//
//   - "snapshot": every sprite of the scene, sent on join and on request
//   - "draw": one scene command (load, transform, animate, finish, opacity, scroll)
//   - "state_update": the complete GameState
//   - "run_finished" and other service events
//
// Every message carries a per-session seq. Broadcasting never blocks the
// caller because scenes publish with their lock held, so a full queue drops
// the message. A renderer that notices a gap in seq sends {"type":"resync"}
// and redraws from the snapshot, skipping messages whose seq is not above
// the snapshot's.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	sessions := session.NewManager(session.WithSinkFactory(hub.SessionSink))
//	svc := service.NewGameService(sessions, configs, service.WithNotifier(hub))
//	hub.SetSnapshotSource(func(id string, mark func()) (any, error) {
//		return svc.SceneSnapshot(ctx, id, mark)
//	})
package websocket
