package proximity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quartier-geo/internal/models"
	"quartier-geo/pkg/utils"
)

// Frame types exchanged on the position feed. The client streams position
// frames; the server asks for one with a position_request frame when a
// one-shot acquisition is needed.
const (
	frameTypePosition         = "position"
	frameTypePositionRequest  = "position_request"
	frameTypePermissionDenied = "permission_denied"
)

type positionFrame struct {
	Type           string  `json:"type"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
	AccuracyMeters float64 `json:"accuracy_m,omitempty"`
}

type positionResult struct {
	pos models.Position
	err error
}

type feedSubscriber struct {
	onUpdate func(models.Position)
	onError  func(error)
}

// wsPositionSource adapts a websocket connection from the client device
// into a PositionSource. One instance lives for the duration of one feed
// connection; run blocks until the connection drops.
type wsPositionSource struct {
	conn   *websocket.Conn
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	closed  bool
	subs    map[string]feedSubscriber
	waiters []chan positionResult
}

func newWSPositionSource(conn *websocket.Conn, logger *zap.Logger) *wsPositionSource {
	return &wsPositionSource{
		conn:   conn,
		logger: logger,
		now:    time.Now,
		subs:   make(map[string]feedSubscriber),
	}
}

// run reads frames until the connection drops, fanning positions out to
// subscribers and pending one-shot requesters.
func (s *wsPositionSource) run() {
	for {
		var frame positionFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.shutdown(err)
			return
		}

		switch frame.Type {
		case frameTypePosition:
			pos := models.Position{
				Coordinate: models.Coordinate{
					Latitude:  frame.Latitude,
					Longitude: frame.Longitude,
				},
				AccuracyMeters: frame.AccuracyMeters,
				RecordedAt:     s.now(),
			}
			s.deliver(positionResult{pos: pos})
		case frameTypePermissionDenied:
			s.deliver(positionResult{err: models.ErrLocationPermissionDenied})
		default:
			s.logger.Debug("ignoring unknown position feed frame", zap.String("type", frame.Type))
		}
	}
}

// Subscribe registers a continuous-update consumer.
func (s *wsPositionSource) Subscribe(onUpdate func(models.Position), onError func(error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", models.ErrLocationUnavailable
	}

	handle, err := utils.GenerateSessionToken(16)
	if err != nil {
		return "", err
	}
	s.subs[handle] = feedSubscriber{onUpdate: onUpdate, onError: onError}
	return handle, nil
}

// Unsubscribe drops the subscription; unknown handles are ignored.
func (s *wsPositionSource) Unsubscribe(handle string) {
	s.mu.Lock()
	delete(s.subs, handle)
	s.mu.Unlock()
}

// Request asks the device for one position fix and waits for the next
// position frame, bounded by ctx.
func (s *wsPositionSource) Request(ctx context.Context) (models.Position, error) {
	waiter := make(chan positionResult, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.Position{}, models.ErrLocationUnavailable
	}
	s.waiters = append(s.waiters, waiter)
	err := s.conn.WriteJSON(positionFrame{Type: frameTypePositionRequest})
	s.mu.Unlock()

	if err != nil {
		return models.Position{}, models.ErrLocationUnavailable
	}

	select {
	case res := <-waiter:
		return res.pos, res.err
	case <-ctx.Done():
		return models.Position{}, ctx.Err()
	}
}

// deliver hands a result to every pending one-shot waiter and, for
// successful fixes, to every continuous subscriber.
func (s *wsPositionSource) deliver(res positionResult) {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	subs := make([]feedSubscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, w := range waiters {
		w <- res
	}
	for _, sub := range subs {
		if res.err != nil {
			sub.onError(res.err)
			continue
		}
		sub.onUpdate(res.pos)
	}
}

// shutdown fails pending waiters and notifies subscribers that the feed is
// gone. Normal closes are not treated as errors worth surfacing.
func (s *wsPositionSource) shutdown(cause error) {
	s.mu.Lock()
	s.closed = true
	waiters := s.waiters
	s.waiters = nil
	subs := make([]feedSubscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]feedSubscriber)
	s.mu.Unlock()

	var closeErr *websocket.CloseError
	if cause != nil && !errors.As(cause, &closeErr) {
		s.logger.Debug("position feed read failed", zap.Error(cause))
	}

	for _, w := range waiters {
		w <- positionResult{err: models.ErrLocationUnavailable}
	}
	for _, sub := range subs {
		sub.onError(models.ErrLocationUnavailable)
	}
}
