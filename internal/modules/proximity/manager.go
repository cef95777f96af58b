package proximity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager hands out one engine per client session. Sessions are keyed by
// user id: the marketplace app runs one active device session per account.
type Manager struct {
	dropPoints DropPointRepositoryInterface
	imprints   ImprintRepositoryInterface
	cache      PositionCache
	logger     *zap.Logger

	freshness      time.Duration
	requestTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Engine
}

// NewManager creates the session manager.
func NewManager(
	dropPoints DropPointRepositoryInterface,
	imprints ImprintRepositoryInterface,
	cache PositionCache,
	logger *zap.Logger,
	freshness, requestTimeout time.Duration,
) *Manager {
	return &Manager{
		dropPoints:     dropPoints,
		imprints:       imprints,
		cache:          cache,
		logger:         logger,
		freshness:      freshness,
		requestTimeout: requestTimeout,
		sessions:       make(map[string]*Engine),
	}
}

// Session returns the engine for userID, creating it on first use.
func (m *Manager) Session(userID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[userID]; ok {
		return e
	}
	e := NewEngine(userID, "sess-"+userID, m.dropPoints, m.imprints, m.cache, m.logger,
		m.freshness, m.requestTimeout)
	m.sessions[userID] = e
	return e
}
