package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/config"
	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/messages"
	"github.com/room4-2/dinedialog/metrics"
)

var (
	ErrMaxSessions     = errors.New("maximum sessions reached")
	ErrSessionNotFound = errors.New("session not found")
	ErrRateLimited     = errors.New("too many utterances, slow down")
	ErrSessionComplete = errors.New("dialog is already complete")
)

// Close reasons
const (
	ReasonComplete = "complete"
	ReasonIdle     = "idle"
	ReasonClient   = "client"
	ReasonDeleted  = "deleted"
	ReasonShutdown = "shutdown"
)

const activeSessionsKey = "active_sessions"

// Manager manages all dialog sessions
type Manager struct {
	sessions   map[string]*Conversation
	mu         sync.RWMutex
	redis      *redis.Client
	config     *config.Config
	catalog    *catalog.Catalog
	classifier dialog.Classifier
	extractor  dialog.Extractor
	options    dialog.Options
	logger     *zap.Logger
}

// NewManager creates a session manager. Sessions share the catalog,
// classifier and extractor; each gets its own dialog state. Redis is used as
// a metadata mirror when reachable.
func NewManager(cfg *config.Config, cat *catalog.Catalog, classifier dialog.Classifier, extractor dialog.Extractor, logger *zap.Logger) (*Manager, error) {
	if cat == nil || classifier == nil || extractor == nil {
		return nil, errors.New("catalog, classifier and extractor are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("session")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})

		// Test Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Redis unavailable, continue without it
			logger.Warn("redis unavailable, session mirror disabled", zap.String("addr", cfg.RedisURL), zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
	}

	return &Manager{
		sessions:   make(map[string]*Conversation),
		redis:      redisClient,
		config:     cfg,
		catalog:    cat,
		classifier: classifier,
		extractor:  extractor,
		options:    dialog.Options{Formal: cfg.Formal, Uppercase: cfg.Uppercase},
		logger:     logger,
	}, nil
}

// CreateSession starts a new conversation in the Welcome state
func (sm *Manager) CreateSession(ctx context.Context, transport string) (*Conversation, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		metrics.SessionRejected()
		return nil, ErrMaxSessions
	}

	sessionID := uuid.New().String()
	conv := newConversation(sessionID, sm.newDialog, rate.NewLimiter(rate.Limit(sm.config.TurnRate), sm.config.TurnBurst), sm.config.MaxTranscript)

	sm.storeSession(ctx, conv)
	metrics.SessionOpened(transport)
	sm.logger.Info("session created", zap.String("session", shortID(sessionID)), zap.String("transport", transport))
	return conv, nil
}

func (sm *Manager) newDialog() *dialog.Session {
	return dialog.NewSession(sm.catalog, sm.classifier, sm.extractor, sm.options)
}

// storeSession saves a session to memory and Redis
func (sm *Manager) storeSession(ctx context.Context, conv *Conversation) {
	sm.sessions[conv.ID] = conv

	if sm.redis != nil {
		key := "session:" + conv.ID
		_, err := sm.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"created_at":    conv.CreatedAt.Format(time.RFC3339),
				"last_activity": conv.CreatedAt.Format(time.RFC3339),
				"status":        "active",
				"state":         string(dialog.StateWelcome),
				"turns":         0,
			})
			pipe.SAdd(ctx, activeSessionsKey, conv.ID)
			pipe.Expire(ctx, key, sm.config.SessionTimeout)
			return nil
		})
		if err != nil {
			sm.logger.Debug("redis mirror failed", zap.String("session", shortID(conv.ID)), zap.Error(err))
		}
	}
}

// mirrorTurn refreshes the Redis copy after a turn
func (sm *Manager) mirrorTurn(ctx context.Context, conv *Conversation, turn dialog.Turn) {
	if sm.redis == nil {
		return
	}
	status := "active"
	if turn.Done {
		status = "complete"
	}
	key := "session:" + conv.ID
	_, err := sm.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"last_activity": time.Now().Format(time.RFC3339),
			"status":        status,
			"state":         string(turn.State),
			"turns":         conv.Turns(),
		})
		pipe.Expire(ctx, key, sm.config.SessionTimeout)
		return nil
	})
	if err != nil {
		sm.logger.Debug("redis mirror failed", zap.String("session", shortID(conv.ID)), zap.Error(err))
	}
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*Conversation, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	conv, exists := sm.sessions[sessionID]
	return conv, exists
}

// Submit runs one utterance through the session's dialog. The configured
// response delay is applied before returning.
func (sm *Manager) Submit(ctx context.Context, sessionID, text string) (dialog.Turn, error) {
	conv, ok := sm.GetSession(sessionID)
	if !ok {
		return dialog.Turn{}, ErrSessionNotFound
	}

	turn, err := conv.Submit(ctx, text)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			metrics.RecordRateLimited()
		}
		return turn, err
	}

	metrics.RecordTurn(string(turn.Act), string(turn.State), turn.Handled)
	log := sm.logger.With(zap.String("session", shortID(sessionID)))
	if turn.ClassifyErr != nil {
		log.Warn("classifier failed, treating utterance as null", zap.Error(turn.ClassifyErr))
	}
	log.Debug("turn",
		zap.String("act", string(turn.Act)),
		zap.String("state", string(turn.State)),
		zap.Bool("handled", turn.Handled),
		zap.Bool("done", turn.Done),
	)
	sm.mirrorTurn(ctx, conv, turn)

	if d := sm.config.ResponseDelay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return turn, nil
}

// Restart puts a session back in the Welcome state
func (sm *Manager) Restart(ctx context.Context, sessionID string) (messages.PromptPayload, error) {
	conv, ok := sm.GetSession(sessionID)
	if !ok {
		return messages.PromptPayload{}, ErrSessionNotFound
	}
	prompt := conv.Restart()
	sm.mirrorTurn(ctx, conv, dialog.Turn{State: dialog.State(prompt.State)})
	sm.logger.Info("session restarted", zap.String("session", shortID(sessionID)))
	return prompt, nil
}

// RemoveSession cleans up and removes a session
func (sm *Manager) RemoveSession(ctx context.Context, sessionID, reason string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	conv, exists := sm.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}
	sm.removeLocked(ctx, conv, reason)
	return nil
}

func (sm *Manager) removeLocked(ctx context.Context, conv *Conversation, reason string) {
	conv.Close()
	delete(sm.sessions, conv.ID)
	metrics.SessionClosed(reason)
	sm.logger.Info("session closed", zap.String("session", shortID(conv.ID)), zap.String("reason", reason))

	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+conv.ID)
		sm.redis.SRem(ctx, activeSessionsKey, conv.ID)
	}
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions removes sessions that have been inactive
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	now := time.Now()
	for _, conv := range sm.sessions {
		if now.Sub(conv.LastActivity()) > sm.config.SessionTimeout {
			sm.removeLocked(ctx, conv, ReasonIdle)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	sm.runCleanup(ctx, time.Minute)
}

func (sm *Manager) runCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sm.CleanupInactiveSessions(ctx); n > 0 {
				sm.logger.Info("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown closes all sessions
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, conv := range sm.sessions {
		sm.removeLocked(ctx, conv, ReasonShutdown)
	}

	// the handle is never reassigned; later mirror calls get redis.ErrClosed
	if sm.redis != nil {
		_ = sm.redis.Close()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
