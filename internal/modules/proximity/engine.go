// Package proximity implements the per-session proximity engine: live
// device position tracking, drop-point discovery within a radius, and
// append-only imprint logging.
package proximity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quartier-geo/internal/geo"
	"quartier-geo/internal/models"
)

// WatchState is the engine's position-watch state. There are exactly two
// states; a session is either receiving continuous updates or it is not.
type WatchState int

const (
	StateIdle WatchState = iota
	StateWatching
)

// positionCacheTTL bounds how long a last-known position survives in the
// shared cache after the device goes quiet.
const positionCacheTTL = 5 * time.Minute

// PositionCache is the slice of the shared cache the engine uses for
// last-known positions. Satisfied by storage.RedisClient.
type PositionCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// cachedPosition is the wire form of a cached position; CachedAt is the
// receipt time, which drives the freshness check.
type cachedPosition struct {
	models.Position
	CachedAt time.Time `json:"cached_at"`
}

// Engine is one client session's proximity engine. It is explicitly
// constructed per session with its collaborators injected; there is no
// shared global instance. The cached last-known position is scoped to this
// session and never shared across users.
type Engine struct {
	userID    string
	sessionID string

	dropPoints DropPointRepositoryInterface
	imprints   ImprintRepositoryInterface
	cache      PositionCache
	logger     *zap.Logger

	freshness      time.Duration
	requestTimeout time.Duration
	now            func() time.Time

	mu          sync.Mutex
	state       WatchState
	source      PositionSource
	subHandle   string
	last        *models.Position
	lastReceipt time.Time
	imprintSubs map[string]chan models.Imprint
}

// NewEngine creates a proximity engine for one client session. cache may
// be nil, in which case last-known positions live only in memory.
func NewEngine(userID, sessionID string,
	dropPoints DropPointRepositoryInterface,
	imprints ImprintRepositoryInterface,
	cache PositionCache,
	logger *zap.Logger,
	freshness, requestTimeout time.Duration,
) *Engine {
	return &Engine{
		userID:         userID,
		sessionID:      sessionID,
		dropPoints:     dropPoints,
		imprints:       imprints,
		cache:          cache,
		logger:         logger,
		freshness:      freshness,
		requestTimeout: requestTimeout,
		now:            time.Now,
		state:          StateIdle,
		imprintSubs:    make(map[string]chan models.Imprint),
	}
}

// State returns the current watch state.
func (e *Engine) State() WatchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AttachSource connects the session's live position source. An attached
// source replaces any previous one; an active watch on the old source is
// stopped first.
func (e *Engine) AttachSource(src PositionSource) {
	e.StopWatching()
	e.mu.Lock()
	e.source = src
	e.mu.Unlock()
}

// DetachSource disconnects src if it is the active source, stopping any
// watch on it. Detaching a superseded source is a no-op.
func (e *Engine) DetachSource(src PositionSource) {
	e.mu.Lock()
	active := e.source == src
	e.mu.Unlock()
	if !active {
		return
	}
	e.StopWatching()
	e.mu.Lock()
	if e.source == src {
		e.source = nil
	}
	e.mu.Unlock()
}

// StartWatching transitions IDLE -> WATCHING and subscribes to continuous
// position updates. Each update is cached with its receipt time.
func (e *Engine) StartWatching() error {
	e.mu.Lock()
	if e.state == StateWatching {
		e.mu.Unlock()
		return models.ErrAlreadyWatching
	}
	src := e.source
	e.mu.Unlock()

	if src == nil {
		return models.ErrLocationUnavailable
	}

	handle, err := src.Subscribe(e.storePosition, e.onSourceError)
	if err != nil {
		return fmt.Errorf("engine.StartWatching: %w", err)
	}

	e.mu.Lock()
	e.state = StateWatching
	e.subHandle = handle
	e.mu.Unlock()
	return nil
}

// StopWatching transitions WATCHING -> IDLE and releases the subscription.
// Stopping an idle session is a no-op. The last-known position survives.
func (e *Engine) StopWatching() {
	e.mu.Lock()
	if e.state != StateWatching {
		e.mu.Unlock()
		return
	}
	src := e.source
	handle := e.subHandle
	e.state = StateIdle
	e.subHandle = ""
	e.mu.Unlock()

	if src != nil {
		src.Unsubscribe(handle)
	}
}

// CurrentPosition returns the cached position when it is younger than the
// freshness window, falling back to the shared cache and finally to a
// one-shot request against the live source, independent of watch state.
func (e *Engine) CurrentPosition(ctx context.Context) (models.Position, error) {
	e.mu.Lock()
	if e.last != nil && e.now().Sub(e.lastReceipt) < e.freshness {
		pos := *e.last
		e.mu.Unlock()
		return pos, nil
	}
	src := e.source
	e.mu.Unlock()

	if pos, ok := e.cachedPosition(ctx); ok {
		return pos, nil
	}

	if src == nil {
		return models.Position{}, models.ErrLocationUnavailable
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	pos, err := src.Request(reqCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Position{}, models.ErrPositionTimeout
		}
		return models.Position{}, fmt.Errorf("engine.CurrentPosition: %w", err)
	}

	e.storePosition(pos)
	return pos, nil
}

// FindNearby returns drop points within radiusMeters of the current
// position, sorted by ascending distance. Candidates from the store are
// re-checked with the shared haversine primitive, so callers never see an
// entry whose computed distance exceeds the radius.
func (e *Engine) FindNearby(ctx context.Context, radiusMeters float64) ([]models.NearbyDropPoint, error) {
	pos, err := e.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := e.dropPoints.FindNearby(ctx, pos.Latitude, pos.Longitude, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("engine.FindNearby: %w", err)
	}

	nearby := make([]models.NearbyDropPoint, 0, len(candidates))
	for _, dp := range candidates {
		d := geo.Haversine(pos.Latitude, pos.Longitude, dp.Latitude, dp.Longitude)
		if d > radiusMeters {
			continue
		}
		nearby = append(nearby, models.NearbyDropPoint{
			DropPoint:      dp,
			DistanceMeters: int(math.Round(d)),
		})
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

// LogImprint appends an imprint at the explicit coordinate when one is
// supplied, otherwise at the device's current position. The write is not
// distance-gated: proximity policy belongs to the caller, who can consult
// FindNearby first. Position failures propagate without a partial write.
func (e *Engine) LogImprint(ctx context.Context, req models.LogImprintRequest) (*models.Imprint, error) {
	var lat, lon float64
	if req.Latitude != nil && req.Longitude != nil {
		lat, lon = *req.Latitude, *req.Longitude
	} else {
		pos, err := e.CurrentPosition(ctx)
		if err != nil {
			return nil, err
		}
		lat, lon = pos.Latitude, pos.Longitude
	}

	imprint := &models.Imprint{
		UserID:      e.userID,
		Latitude:    lat,
		Longitude:   lon,
		Action:      req.Action,
		Note:        req.Note,
		ServiceType: req.ServiceType,
		DropPointID: req.DropPointID,
	}

	if err := e.imprints.Create(ctx, imprint); err != nil {
		return nil, fmt.Errorf("engine.LogImprint: %w", err)
	}

	e.publishImprint(*imprint)
	return imprint, nil
}

// SubscribeImprints returns a channel receiving every imprint this session
// logs, plus a cancel function releasing the subscription. Slow consumers
// miss events rather than blocking the logging path.
func (e *Engine) SubscribeImprints() (<-chan models.Imprint, func()) {
	ch := make(chan models.Imprint, 8)
	id := uuid.NewString()

	e.mu.Lock()
	e.imprintSubs[id] = ch
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if sub, ok := e.imprintSubs[id]; ok {
			delete(e.imprintSubs, id)
			close(sub)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publishImprint(imprint models.Imprint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.imprintSubs {
		select {
		case ch <- imprint:
		default:
		}
	}
}

// storePosition caches a received position in memory and, best-effort, in
// the shared cache.
func (e *Engine) storePosition(pos models.Position) {
	receipt := e.now()

	e.mu.Lock()
	p := pos
	e.last = &p
	e.lastReceipt = receipt
	e.mu.Unlock()

	if e.cache == nil {
		return
	}
	data, err := json.Marshal(cachedPosition{Position: pos, CachedAt: receipt})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.cache.Set(ctx, e.positionKey(), data, positionCacheTTL); err != nil {
		e.logger.Debug("position cache write failed", zap.Error(err))
	}
}

// cachedPosition reads the shared cache, honoring the freshness window.
func (e *Engine) cachedPosition(ctx context.Context) (models.Position, bool) {
	if e.cache == nil {
		return models.Position{}, false
	}
	data, err := e.cache.Get(ctx, e.positionKey())
	if err != nil {
		return models.Position{}, false
	}
	var cached cachedPosition
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return models.Position{}, false
	}
	if e.now().Sub(cached.CachedAt) >= e.freshness {
		return models.Position{}, false
	}

	e.mu.Lock()
	p := cached.Position
	e.last = &p
	e.lastReceipt = cached.CachedAt
	e.mu.Unlock()
	return cached.Position, true
}

func (e *Engine) positionKey() string {
	return "position:" + e.sessionID
}

func (e *Engine) onSourceError(err error) {
	e.logger.Warn("position source error",
		zap.String("session_id", e.sessionID),
		zap.Error(err))
}
