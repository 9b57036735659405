// Package service provides the business logic layer of the van routing game.
//
// GameService is what every transport (HTTP, WebSocket, MCP) talks to. It
// owns no state of its own: sessions come from a SessionManager, levels and
// board geometry from a ConfigManager and the player's defaults from a
// PreferenceStore.
//
// Actions and programs:
//
// Act applies one action to the session's engine and starts the matching
// maneuver on the van right away. Run applies a whole program to the engine
// first, so the result already tells where the van ends up, then plays the
// maneuvers back one after another on the session's clock. A new Act, Run,
// Reset or DeleteSession cancels a program that is still playing; the van is
// then snapped to the cell the engine reached.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithNotifier(hub),
//	)
//
//	info, err := gameService.CreateSession(ctx, "classic", service.SessionOptions{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Run(ctx, info.ID, []string{"forward", "turn_left"}, false)
package service
