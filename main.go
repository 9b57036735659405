// Command vanroute starts the van route game server.
//
// It supports three commands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "simulate" plays a program on a level with a simulated clock and prints the draw commands
//
// Flags control host/port, config directory, debug logging and optional ngrok
// tunneling for easy external access during development. Every flag can also
// be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/vanroute/api"
	"github.com/wricardo/mcp-training/vanroute/game/config"
	"github.com/wricardo/mcp-training/vanroute/game/service"
	"github.com/wricardo/mcp-training/vanroute/game/session"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
	"github.com/wricardo/mcp-training/vanroute/transport/mcp"
	"github.com/wricardo/mcp-training/vanroute/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Van Route Server"
)

// options are the settings shared by all commands.
type options struct {
	host           string
	port           int
	configDir      string
	sessionsDir    string
	apiURL         string
	debug          bool
	memoryPrefs    bool
	ngrokEnabled   bool
	ngrokAuthToken string
	ngrokDomain    string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:           cmd.String("host"),
		port:           int(cmd.Int("port")),
		configDir:      cmd.String("config-dir"),
		sessionsDir:    cmd.String("sessions-dir"),
		apiURL:         cmd.String("api-url"),
		debug:          cmd.Bool("debug"),
		memoryPrefs:    cmd.Bool("no-preferences"),
		ngrokEnabled:   cmd.Bool("ngrok"),
		ngrokAuthToken: cmd.String("ngrok-auth"),
		ngrokDomain:    cmd.String("ngrok-domain"),
	}
}

// newCommand builds the command tree.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "vanroute",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing level configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory sessions are persisted to", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "External API the stdio MCP server uses when it is running", Sources: cli.EnvVars("VANROUTE_API_URL")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "no-preferences", Usage: "Keep player preferences in memory only", Sources: cli.EnvVars("VANROUTE_NO_PREFERENCES")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioCommand,
			},
			{
				Name:      "simulate",
				Usage:     "Play a program on a level and print the animation timeline",
				ArgsUsage: "[action...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "level", Aliases: []string{"l"}, Usage: "Level config ID (default level when empty)"},
					&cli.StringSliceFlag{Name: "program", Aliases: []string{"p"}, Usage: "Actions to run, e.g. -p forward,turn_left"},
					&cli.FloatFlag{Name: "speed", Usage: "Van speed in distance units per millisecond"},
					&cli.BoolFlag{Name: "night", Usage: "Draw the van at night"},
				},
				Action: runSimulateCommand,
			},
		},
	}
}

// main loads .env, then runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initializeServices(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return runHTTPServer(ctx, opts, svc)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Printf("Starting %s v%s (mode: stdio-mcp)", AppName, Version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runStdioMCPWithInternalServer(ctx, opts)
}

func runSimulateCommand(ctx context.Context, cmd *cli.Command) error {
	sim := simulation{
		level:   cmd.String("level"),
		program: append(cmd.StringSlice("program"), cmd.Args().Slice()...),
		speed:   cmd.Float("speed"),
	}
	if cmd.IsSet("night") {
		night := cmd.Bool("night")
		sim.nightMode = &night
	}
	return runSimulation(ctx, os.Stdout, cmd.String("config-dir"), sim)
}

// services are the long-lived components behind the HTTP server.
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	hub         *websocket.Hub
}

// initializeServices wires the config, preference and session managers, the
// websocket hub and the game service. The hub and the background session
// routines run until ctx is done.
func initializeServices(ctx context.Context, opts options) (*services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	prefs := settings.NewManager(nil)
	if !opts.memoryPrefs {
		if stored, err := settings.Open(settings.AppName); err != nil {
			log.Printf("Warning: %v (preferences kept in memory)", err)
		} else {
			prefs = stored
		}
	}

	persistence, err := session.NewFilePersistence(opts.sessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	sessionManager := session.NewManagerWithPersistence(persistence,
		session.WithGeometry(configManager.Geometry()),
		session.WithSinkFactory(hub.SessionSink),
	)

	// Load persisted sessions on startup
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	gameService := service.NewGameService(sessionManager, configManager,
		service.WithPreferences(prefs),
		service.WithNotifier(hub),
	)
	hub.SetSnapshotSource(func(sessionID string, mark func()) (any, error) {
		return gameService.SceneSnapshot(ctx, sessionID, mark)
	})

	go sessionCleanupRoutine(ctx, sessionManager, time.Hour, 24*time.Hour)
	go filesystemSyncRoutine(ctx, sessionManager, persistence, 5*time.Second)

	return &services{
		game:        gameService,
		sessions:    sessionManager,
		persistence: persistence,
		hub:         hub,
	}, nil
}

// newRouter combines the API server with an /mcp endpoint proxying to it.
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer serves the REST API, WebSocket hub and the /mcp proxy until
// ctx is done. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options, svc *services) error {
	addr := opts.addr()
	apiServer := api.NewServer(svc.game, svc.hub)
	mainRouter := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.ngrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err = <-serveErr:
		log.Printf("HTTP server failed: %v", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP server shutdown error: %v", shutdownErr)
	}
	if saveErr := svc.sessions.SaveAllSessions(); saveErr != nil {
		log.Printf("Warning: %v", saveErr)
	}

	wg.Wait()
	log.Println("Server stopped")
	return err
}

func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuthToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge from memory.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine periodically drops sessions from memory whose files
// were deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithFilesystem(manager, persistence); pruned > 0 {
				log.Printf("Filesystem sync: pruned %d orphaned sessions from memory", pruned)
			}
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (file deleted)", s.ID)
		}
	}
	return pruned
}

// externalAPIAvailable reports whether a server answers on baseURL.
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := (&http.Client{Timeout: 2 * time.Second}).Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses the
// external API at opts.apiURL when one answers; otherwise it starts an
// internal HTTP API on a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, opts options) error {
	baseURL := opts.apiURL
	log.Printf("Checking for external API server at %s...", baseURL)

	if externalAPIAvailable(ctx, baseURL) {
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", listener.Addr())

		httpServer := &http.Server{Handler: api.NewServer(svc.game, svc.hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer func() {
			httpServer.Close()
			if err := svc.sessions.SaveAllSessions(); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
