// Package session keeps the live game sessions of the server.
//
// A session pairs a route engine with the scene its van is drawn on. The
// Manager creates both, hands out sessions by case-insensitive ID and, when
// given a SessionPersistence, writes them to disk and restores them lazily.
// A restored van is placed at the engine's current cell; animations that were
// playing when the session was saved are not resumed.
//
// Session IDs are 4 hex characters drawn from crypto/rand and never collide
// with a session in memory or on disk.
//
// Usage:
//
//	persistence, _ := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence,
//		session.WithGeometry(configManager.Geometry()),
//		session.WithSinkFactory(hub.SessionSink),
//	)
//
//	sess, err := manager.Create("", "classic", config, render)
//	if err != nil {
//		log.Fatal(err)
//	}
package session
