package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/cache"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
)

const (
	sessionKeyPrefix = "chat:session:"
	ownerKeyPrefix   = "chat:user:"

	logModule = "CHAT_CACHE"
)

// ErrSessionNotFound is returned by AppendTurn when the cache answered and the
// session is not there. Backend failures are never reported as this error.
var ErrSessionNotFound = errors.New("conversation session not found")

type Config struct {
	Enabled              bool
	MaxConversationTurns int // one turn = one user + one assistant message
	TTL                  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxConversationTurns: 10,
		TTL:                  24 * time.Hour,
	}
}

// Manager owns the cached, bounded conversation state. Every operation is
// best effort: a missing or failing cache turns it into a no-op.
//
// Appends are read-modify-write against the cache without compare-and-swap,
// so two concurrent appends to the same session can lose one of the turns.
type Manager struct {
	store  cache.Store
	cfg    Config
	logger logger.ILogger
	now    func() time.Time
}

func NewManager(store cache.Store, cfg Config, log logger.ILogger) *Manager {
	if cfg.MaxConversationTurns <= 0 {
		cfg.MaxConversationTurns = DefaultConfig().MaxConversationTurns
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

func (m *Manager) Enabled() bool {
	return m.cfg.Enabled && m.store != nil
}

func (m *Manager) MaxConversationTurns() int {
	return m.cfg.MaxConversationTurns
}

// CreateSession allocates a new session id and stores an empty session.
// The id is returned even when the cache is unavailable.
func (m *Manager) CreateSession(ctx context.Context, ownerID, knowledgeBaseID, knowledgeBaseName string) string {
	id := uuid.NewString()
	m.create(ctx, id, ownerID, knowledgeBaseID, knowledgeBaseName)
	return id
}

// Ensure returns the cached session with the given id, creating it when absent.
func (m *Manager) Ensure(ctx context.Context, id, ownerID, knowledgeBaseID, knowledgeBaseName string) *store.Session {
	if s, ok := m.GetSession(ctx, id); ok {
		return s
	}
	return m.create(ctx, id, ownerID, knowledgeBaseID, knowledgeBaseName)
}

func (m *Manager) create(ctx context.Context, id, ownerID, knowledgeBaseID, knowledgeBaseName string) *store.Session {
	now := m.now()
	s := &store.Session{
		ID:                id,
		OwnerID:           ownerID,
		KnowledgeBaseID:   knowledgeBaseID,
		KnowledgeBaseName: knowledgeBaseName,
		Turns:             []store.Turn{},
		CreatedAt:         now,
		LastActiveAt:      now,
	}
	if !m.Enabled() {
		return s
	}

	if err := m.save(ctx, s); err != nil {
		m.logger.Warn(logModule, "Failed to create session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return s
	}
	if err := m.store.SAdd(ctx, ownerKeyPrefix+ownerID, m.cfg.TTL, id); err != nil {
		m.logger.Warn(logModule, "Failed to index session for owner", map[string]interface{}{
			"session_id": id,
			"owner_id":   ownerID,
			"error":      err.Error(),
		})
	}

	m.logger.Info(logModule, "Session created", map[string]interface{}{
		"session_id":        id,
		"owner_id":          ownerID,
		"knowledge_base_id": knowledgeBaseID,
	})
	return s
}

// GetSession returns false once the session expired or was deleted, and also
// when the cache cannot be reached.
func (m *Manager) GetSession(ctx context.Context, id string) (*store.Session, bool) {
	if !m.Enabled() || id == "" {
		return nil, false
	}

	s, err := m.load(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			m.logger.Warn(logModule, "Failed to read session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
		return nil, false
	}
	return s, true
}

// AppendTurn appends a turn, evicts the oldest turns beyond the window and
// refreshes the TTL.
func (m *Manager) AppendTurn(ctx context.Context, id string, turn store.Turn) error {
	if !m.Enabled() {
		return nil
	}

	s, err := m.load(ctx, id)
	if errors.Is(err, cache.ErrMiss) {
		return ErrSessionNotFound
	}
	if err != nil {
		m.logger.Warn(logModule, "Failed to load session for append", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return nil
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = m.now()
	}
	s.Turns = append(s.Turns, turn)

	window := m.cfg.MaxConversationTurns * 2
	if overflow := len(s.Turns) - window; overflow > 0 {
		s.Turns = append([]store.Turn(nil), s.Turns[overflow:]...)
	}
	s.LastActiveAt = m.now()

	if err := m.save(ctx, s); err != nil {
		m.logger.Warn(logModule, "Failed to save session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return nil
	}
	if s.OwnerID != "" {
		if err := m.store.SAdd(ctx, ownerKeyPrefix+s.OwnerID, m.cfg.TTL, id); err != nil {
			m.logger.Warn(logModule, "Failed to refresh owner index", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

func (m *Manager) AppendUserTurn(ctx context.Context, id, content string) error {
	return m.AppendTurn(ctx, id, store.Turn{Role: store.RoleUser, Content: content})
}

func (m *Manager) AppendAssistantTurn(ctx context.Context, id, content, contextChunks string) error {
	return m.AppendTurn(ctx, id, store.Turn{Role: store.RoleAssistant, Content: content, ContextChunks: contextChunks})
}

// RenderHistory renders the most recent MaxConversationTurns exchanges as a
// role-labelled transcript. Empty string when there is nothing to render.
func (m *Manager) RenderHistory(ctx context.Context, id string) string {
	s, ok := m.GetSession(ctx, id)
	if !ok || len(s.Turns) == 0 {
		return ""
	}
	return RenderTurns(s.Turns, m.cfg.MaxConversationTurns)
}

// RenderTurns is the transcript format shared with callers that rebuild
// history from permanent storage.
func RenderTurns(turns []store.Turn, maxConversationTurns int) string {
	start := 0
	if window := maxConversationTurns * 2; window > 0 && len(turns) > window {
		start = len(turns) - window
	}

	var b strings.Builder
	for _, t := range turns[start:] {
		switch t.Role {
		case store.RoleUser:
			b.WriteString("User: ")
		case store.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// DeleteSession is idempotent.
func (m *Manager) DeleteSession(ctx context.Context, id string) {
	if !m.Enabled() || id == "" {
		return
	}

	s, found := m.GetSession(ctx, id)
	if err := m.store.Delete(ctx, sessionKeyPrefix+id); err != nil {
		m.logger.Warn(logModule, "Failed to delete session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return
	}
	if found && s.OwnerID != "" {
		if err := m.store.SRem(ctx, ownerKeyPrefix+s.OwnerID, id); err != nil {
			m.logger.Warn(logModule, "Failed to unindex session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
	m.logger.Info(logModule, "Session deleted", map[string]interface{}{"session_id": id})
}

// ListSessions returns the ids indexed for the owner. Some may have expired;
// CleanupExpiredSessions prunes them.
func (m *Manager) ListSessions(ctx context.Context, ownerID string) []string {
	if !m.Enabled() {
		return []string{}
	}
	ids, err := m.store.SMembers(ctx, ownerKeyPrefix+ownerID)
	if err != nil {
		m.logger.Warn(logModule, "Failed to list sessions", map[string]interface{}{
			"owner_id": ownerID,
			"error":    err.Error(),
		})
		return []string{}
	}
	return ids
}

// CleanupExpiredSessions removes index entries whose session has expired and
// returns how many were removed.
func (m *Manager) CleanupExpiredSessions(ctx context.Context, ownerID string) int {
	if !m.Enabled() {
		return 0
	}

	var stale []string
	for _, id := range m.ListSessions(ctx, ownerID) {
		_, err := m.load(ctx, id)
		if errors.Is(err, cache.ErrMiss) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0
	}
	if err := m.store.SRem(ctx, ownerKeyPrefix+ownerID, stale...); err != nil {
		m.logger.Warn(logModule, "Failed to prune owner index", map[string]interface{}{
			"owner_id": ownerID,
			"error":    err.Error(),
		})
		return 0
	}
	return len(stale)
}

func (m *Manager) load(ctx context.Context, id string) (*store.Session, error) {
	raw, err := m.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	var s store.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Manager) save(ctx context.Context, s *store.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, sessionKeyPrefix+s.ID, raw, m.cfg.TTL)
}
