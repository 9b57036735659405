package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/vanroute/game/animation"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/scene"
	"github.com/wricardo/mcp-training/vanroute/game/settings"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	prefs    PreferenceStore
	notifier Notifier
	clock    animation.Clock
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithPreferences sets the store new sessions take their defaults from.
func WithPreferences(prefs PreferenceStore) Option {
	return func(s *gameServiceImpl) { s.prefs = prefs }
}

// WithNotifier sets where run completion events are sent.
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithClock sets the clock programs are paced on. It should be the clock
// the sessions' scenes run on.
func WithClock(clock animation.Clock) Option {
	return func(s *gameServiceImpl) { s.clock = clock }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		clock:    animation.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefs == nil {
		s.prefs = settings.NewManager(nil)
	}
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, opts SessionOptions) (*SessionInfo, error) {
	if opts.Speed < 0 || math.IsNaN(opts.Speed) || math.IsInf(opts.Speed, 0) {
		return nil, fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidRequest, opts.Speed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.prefs.Get()
	if configName == "" {
		configName = prefs.DefaultLevel
	}

	var config *engine.GameConfig
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					configIDs := make([]string, 0, len(availableConfigs))
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	render := RenderOptions{
		Speed:           prefs.Speed,
		NightMode:       config.NightMode || prefs.NightMode,
		WreckageEffects: prefs.WreckageEffects,
	}
	if config.Speed > 0 {
		render.Speed = config.Speed
	}
	if opts.Speed > 0 {
		render.Speed = opts.Speed
	}
	if opts.NightMode != nil {
		render.NightMode = *opts.NightMode
	}

	sess, err := s.sessions.Create("", s.configs.ConfigID(config), config, render)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[SESSION] created %s level=%s speed=%g night=%v", sess.ID, sess.ConfigName, render.Speed, render.NightMode)
	return sessionInfo(sess), nil
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigName,
		Speed:          sess.Van.Speed(),
		NightMode:      sess.Render.NightMode,
		Running:        sess.Running(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession stops the session's program and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, err := s.sessions.Get(sessionID); err == nil {
		s.stopRunLocked(sess, false)
	}
	return s.sessions.Delete(sessionID)
}

// Act performs a single action and starts its animation
func (s *gameServiceImpl) Act(ctx context.Context, sessionID, actionName string, scale float64, reset bool) (*ActResult, error) {
	action, err := engine.ParseAction(actionName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: scale cannot be negative: %v", ErrInvalidRequest, scale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var events []GameEvent
	if reset {
		s.resetLocked(sess)
		events = append(events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	} else {
		s.stopRunLocked(sess, true)
	}

	before := sess.Engine.GetScore()
	out, err := sess.Engine.Step(action, scale)
	if err != nil {
		return nil, err
	}

	d, err := sess.Van.Dispatch(out.Maneuver, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to animate %s: %w", out.Maneuver, err)
	}

	state := sess.Engine.GetState()
	state.LocalView = sess.Engine.GetLocalView()
	events = append(events, outcomeEvents(out, state, state.Score > before)...)

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("[SESSION] Warning: failed to persist session %s after action: %v", sessionID, err)
	}

	return &ActResult{
		Success:         out.Success,
		Outcome:         out,
		DurationMs:      durationMs(d),
		GameState:       state,
		Message:         state.Message,
		Events:          events,
		PossibleActions: sess.Engine.GetPossibleActions(),
	}, nil
}

// Run executes a program on the engine right away and plays its maneuvers
// back on the van, each one starting when the previous one ends
func (s *gameServiceImpl) Run(ctx context.Context, sessionID string, names []string, reset bool) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	program, err := engine.ParseProgram(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &RunResult{
		RequestedActions: len(program),
		Success:          true,
		Events:           make([]GameEvent, 0),
	}

	if reset {
		s.resetLocked(sess)
		result.Events = append(result.Events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	} else {
		s.stopRunLocked(sess, true)
	}

	start := sess.Engine.GetState()
	result.StartPos = start.VanPos
	startScore := start.Score

	var (
		maneuvers []animation.Maneuver
		elapsed   time.Duration
	)
	for i, action := range program {
		if sess.Engine.IsGameOver() {
			result.StoppedOnAction = i + 1
			result.StoppedReason = "run is over"
			break
		}

		before := sess.Engine.GetScore()
		out, err := sess.Engine.Step(action, 0)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}

		d, err := sess.Van.Duration(out.Maneuver)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}

		state := sess.Engine.GetState()
		delivered := state.Score > before
		result.Steps = append(result.Steps, StepInfo{
			Idx:           i + 1,
			Action:        out.Action,
			From:          out.From,
			To:            out.To,
			HeadingBefore: out.HeadingBefore,
			HeadingAfter:  out.HeadingAfter,
			Maneuver:      out.Maneuver.String(),
			Success:       out.Success,
			Delivered:     delivered,
			StartMs:       durationMs(elapsed),
			DurationMs:    durationMs(d),
		})
		result.Events = append(result.Events, outcomeEvents(out, state, delivered)...)
		result.ActionsExecuted++
		elapsed += d
		maneuvers = append(maneuvers, out.Maneuver)

		if out.StopsProgram {
			result.Success = false
			result.StoppedOnAction = i + 1
			result.StoppedReason = out.Message
			result.StopReasonCode = "collided"
			if out.Maneuver.Kind == animation.KindCrash {
				result.StopReasonCode = "crashed"
			}
			break
		}
	}

	end := sess.Engine.GetState()
	if end.GameOver && result.StopReasonCode == "" {
		if end.Victory {
			result.StopReasonCode = "victory"
		} else {
			result.StopReasonCode = "run_over"
			result.Success = false
		}
	}

	if len(maneuvers) > 0 {
		id := sess.ID
		run := newProgramRun(id, s.clock, sess.Van, maneuvers, func() {
			s.notify(id, "run_finished", map[string]any{"actions": len(maneuvers)})
		})
		sess.run = run
		run.start()
	}

	end.LocalView = sess.Engine.GetLocalView()
	result.GameState = end
	result.TotalDurationMs = durationMs(elapsed)
	result.EndPos = end.VanPos
	result.ScoreDelta = end.Score - startScore
	result.GameOver = end.GameOver
	result.Victory = end.Victory
	result.Message = end.Message
	result.PossibleActions = sess.Engine.GetPossibleActions()

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("[SESSION] Warning: failed to persist session %s after run: %v", sessionID, err)
	}

	return result, nil
}

// Reset resets a game session and its van to the initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := s.resetLocked(sess)
	state.LocalView = sess.Engine.GetLocalView()

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("[SESSION] Warning: failed to persist session %s after reset: %v", sessionID, err)
	}

	return state, nil
}

// SetSpeed changes the van's speed for the maneuvers started afterwards
func (s *gameServiceImpl) SetSpeed(ctx context.Context, sessionID string, speed float64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Van.SetSpeed(speed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	sess.Render.Speed = speed
	s.sessions.UpdateLastAccessed(sessionID)

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("[SESSION] Warning: failed to persist session %s after speed change: %v", sessionID, err)
	}

	return sessionInfo(sess), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.Engine.GetState()
	state.LocalView = sess.Engine.GetLocalView()
	return state, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// GetScene returns the session's sprites as they are drawn right now
func (s *gameServiceImpl) GetScene(ctx context.Context, sessionID string) ([]scene.SpriteState, error) {
	return s.SceneSnapshot(ctx, sessionID, nil)
}

func (s *gameServiceImpl) SceneSnapshot(ctx context.Context, sessionID string, mark func()) ([]scene.SpriteState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Scene.SnapshotWith(mark), nil
}

// ListConfigs returns available level configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific level configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a level configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// Geometry returns the board geometry sessions are drawn with
func (s *gameServiceImpl) Geometry(ctx context.Context) animation.Geometry {
	return s.configs.Geometry()
}

// GetPreferences returns the player preferences
func (s *gameServiceImpl) GetPreferences(ctx context.Context) settings.Preferences {
	return s.prefs.Get()
}

// SetPreferences replaces the player preferences; running sessions keep
// their settings
func (s *gameServiceImpl) SetPreferences(ctx context.Context, prefs settings.Preferences) (settings.Preferences, error) {
	if err := s.prefs.Update(prefs); err != nil {
		if errors.Is(err, settings.ErrInvalidPreferences) {
			return s.prefs.Get(), fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return s.prefs.Get(), err
	}
	return s.prefs.Get(), nil
}

func (s *gameServiceImpl) get(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return sess, nil
}

// stopRunLocked cancels the session's program. With resync, a van left
// mid-program is snapped to the cell the engine already moved it to.
func (s *gameServiceImpl) stopRunLocked(sess *Session, resync bool) {
	if sess.run == nil {
		return
	}
	playing := sess.run.stop()
	sess.run = nil
	if !playing || !resync {
		return
	}
	if err := sess.Van.Place(sess.Engine.AnimationPosition()); err != nil {
		log.Printf("[RUN] session=%s failed to resync van: %v", sess.ID, err)
	}
}

func (s *gameServiceImpl) resetLocked(sess *Session) *engine.GameState {
	s.stopRunLocked(sess, false)
	state := sess.Engine.Reset()
	if err := sess.Van.Reset(); err != nil {
		log.Printf("[SESSION] Warning: failed to reset van of %s: %v", sess.ID, err)
	}
	return state
}

func (s *gameServiceImpl) notify(sessionID, event string, data any) {
	if s.notifier != nil {
		s.notifier.BroadcastEvent(sessionID, event, data)
	}
}

// outcomeEvents describes what an action did
func outcomeEvents(out engine.Outcome, state *engine.GameState, delivered bool) []GameEvent {
	now := time.Now()
	var events []GameEvent

	switch {
	case out.Maneuver.Kind == animation.KindCrash:
		events = append(events, GameEvent{Type: "crash", Message: out.Message, Timestamp: now, Position: out.From})
	case out.Maneuver.Kind == animation.KindCollideWithObstacle:
		events = append(events, GameEvent{Type: "collision", Message: out.Message, Timestamp: now, Position: out.From})
	case out.Action == engine.Wait:
		events = append(events, GameEvent{Type: "wait", Message: out.Message, Timestamp: now, Position: out.To})
	case out.Action == engine.TurnAround:
		events = append(events, GameEvent{
			Type:      "turn",
			Message:   fmt.Sprintf("Turned around (%s)", out.Maneuver.Direction),
			Timestamp: now,
			Position:  out.To,
		})
	default:
		events = append(events, GameEvent{
			Type:      "move",
			Message:   fmt.Sprintf("%s to (%d,%d) facing %s", out.Action, out.To.X, out.To.Y, out.HeadingAfter),
			Timestamp: now,
			Position:  out.To,
		})
		if delivered {
			events = append(events, GameEvent{Type: "delivered", Message: state.Message, Timestamp: now, Position: out.To})
		}
	}

	if state.GameOver {
		if state.Victory {
			events = append(events, GameEvent{Type: "victory", Message: state.Message, Timestamp: now})
		} else {
			events = append(events, GameEvent{Type: "run_over", Message: state.Message, Timestamp: now})
		}
	}

	return events
}
