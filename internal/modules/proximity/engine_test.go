package proximity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quartier-geo/internal/models"
)

type fakeDropPointRepo struct {
	points    []models.DropPoint
	err       error
	gotRadius float64
}

func (f *fakeDropPointRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.DropPoint, error) {
	f.gotRadius = radiusMeters
	return f.points, f.err
}

type fakeImprintRepo struct {
	mu      sync.Mutex
	created []models.Imprint
	err     error
}

func (f *fakeImprintRepo) Create(ctx context.Context, imprint *models.Imprint) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	imprint.ID = fmt.Sprintf("imp-%d", len(f.created)+1)
	imprint.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.created = append(f.created, *imprint)
	return nil
}

func (f *fakeImprintRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Imprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Imprint(nil), f.created...), nil
}

type fakePositionSource struct {
	mu       sync.Mutex
	pos      models.Position
	err      error
	block    bool
	requests int
	onUpdate func(models.Position)
	active   bool
}

func (f *fakePositionSource) Subscribe(onUpdate func(models.Position), onError func(error)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = onUpdate
	f.active = true
	return "handle-1", nil
}

func (f *fakePositionSource) Unsubscribe(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
}

func (f *fakePositionSource) Request(ctx context.Context) (models.Position, error) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return models.Position{}, ctx.Err()
	}
	return f.pos, f.err
}

func (f *fakePositionSource) emit(pos models.Position) {
	f.mu.Lock()
	onUpdate := f.onUpdate
	f.mu.Unlock()
	if onUpdate != nil {
		onUpdate(pos)
	}
}

func newTestEngine(t *testing.T, drops *fakeDropPointRepo, imprints *fakeImprintRepo) *Engine {
	t.Helper()
	e := NewEngine("user-1", "sess-user-1", drops, imprints, nil, zap.NewNop(),
		30*time.Second, 100*time.Millisecond)
	return e
}

func position(lat, lon float64) models.Position {
	return models.Position{Coordinate: models.Coordinate{Latitude: lat, Longitude: lon}}
}

func TestWatchStateMachine(t *testing.T) {
	e := newTestEngine(t, &fakeDropPointRepo{}, &fakeImprintRepo{})
	assert.Equal(t, StateIdle, e.State())

	// Without a source there is nothing to watch.
	assert.ErrorIs(t, e.StartWatching(), models.ErrLocationUnavailable)

	src := &fakePositionSource{}
	e.AttachSource(src)
	require.NoError(t, e.StartWatching())
	assert.Equal(t, StateWatching, e.State())
	assert.True(t, src.active)

	assert.ErrorIs(t, e.StartWatching(), models.ErrAlreadyWatching)

	e.StopWatching()
	assert.Equal(t, StateIdle, e.State())
	assert.False(t, src.active)

	// Stopping an idle session is a no-op.
	e.StopWatching()
	assert.Equal(t, StateIdle, e.State())
}

func TestDetachStopsActiveWatch(t *testing.T) {
	e := newTestEngine(t, &fakeDropPointRepo{}, &fakeImprintRepo{})
	src := &fakePositionSource{}
	e.AttachSource(src)
	require.NoError(t, e.StartWatching())

	e.DetachSource(src)
	assert.Equal(t, StateIdle, e.State())

	_, err := e.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, models.ErrLocationUnavailable)
}

func TestCurrentPositionServesFreshCache(t *testing.T) {
	e := newTestEngine(t, &fakeDropPointRepo{}, &fakeImprintRepo{})
	src := &fakePositionSource{}
	e.AttachSource(src)
	require.NoError(t, e.StartWatching())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	e.now = func() time.Time { return now }

	src.emit(position(45.5017, -73.5673))

	// Ten seconds later the cached value is still fresh.
	now = base.Add(10 * time.Second)
	pos, err := e.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45.5017, pos.Latitude)
	assert.Equal(t, 0, src.requests)

	// Past the freshness window a one-shot request is made.
	src.pos = position(45.51, -73.57)
	now = base.Add(31 * time.Second)
	pos, err = e.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45.51, pos.Latitude)
	assert.Equal(t, 1, src.requests)
}

func TestCurrentPositionTimesOut(t *testing.T) {
	e := newTestEngine(t, &fakeDropPointRepo{}, &fakeImprintRepo{})
	src := &fakePositionSource{block: true}
	e.AttachSource(src)

	_, err := e.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, models.ErrPositionTimeout)
}

func TestCurrentPositionPropagatesPermissionDenied(t *testing.T) {
	e := newTestEngine(t, &fakeDropPointRepo{}, &fakeImprintRepo{})
	src := &fakePositionSource{err: models.ErrLocationPermissionDenied}
	e.AttachSource(src)

	_, err := e.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, models.ErrLocationPermissionDenied)
}

func TestFindNearbyFiltersAndSorts(t *testing.T) {
	// Candidate distances from (45.5017, -73.5673): roughly 111 m,
	// 557 m, and 2226 m going north.
	drops := &fakeDropPointRepo{points: []models.DropPoint{
		{ID: "far", Latitude: 45.5217, Longitude: -73.5673},
		{ID: "close", Latitude: 45.5027, Longitude: -73.5673},
		{ID: "mid", Latitude: 45.5067, Longitude: -73.5673},
	}}
	e := newTestEngine(t, drops, &fakeImprintRepo{})
	src := &fakePositionSource{pos: position(45.5017, -73.5673)}
	e.AttachSource(src)

	nearby, err := e.FindNearby(context.Background(), 1000)
	require.NoError(t, err)

	// The store's unfiltered candidate beyond the radius is dropped,
	// and results come back nearest first.
	require.Len(t, nearby, 2)
	assert.Equal(t, "close", nearby[0].ID)
	assert.Equal(t, "mid", nearby[1].ID)
	assert.InDelta(t, 111, nearby[0].DistanceMeters, 3)
	assert.InDelta(t, 557, nearby[1].DistanceMeters, 5)
	assert.Equal(t, 1000.0, drops.gotRadius)
}

func TestLogImprintWithExplicitCoordinate(t *testing.T) {
	imprints := &fakeImprintRepo{}
	e := newTestEngine(t, &fakeDropPointRepo{}, imprints)

	lat, lon := 45.52, -73.58
	req := models.LogImprintRequest{
		Action:    models.ImprintVisit,
		Latitude:  &lat,
		Longitude: &lon,
		Note:      "old port walking tour",
	}

	first, err := e.LogImprint(context.Background(), req)
	require.NoError(t, err)
	second, err := e.LogImprint(context.Background(), req)
	require.NoError(t, err)

	// Identical calls append two distinct records; there is no dedup.
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, imprints.created, 2)
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, 45.52, first.Latitude)
}

func TestLogImprintUsesCurrentPosition(t *testing.T) {
	imprints := &fakeImprintRepo{}
	e := newTestEngine(t, &fakeDropPointRepo{}, imprints)
	src := &fakePositionSource{pos: position(45.49, -73.55)}
	e.AttachSource(src)

	imprint, err := e.LogImprint(context.Background(), models.LogImprintRequest{Action: models.ImprintJob})
	require.NoError(t, err)
	assert.Equal(t, 45.49, imprint.Latitude)
	assert.Equal(t, -73.55, imprint.Longitude)
}

func TestLogImprintFailsWithoutPosition(t *testing.T) {
	imprints := &fakeImprintRepo{}
	e := newTestEngine(t, &fakeDropPointRepo{}, imprints)

	_, err := e.LogImprint(context.Background(), models.LogImprintRequest{Action: models.ImprintJob})
	assert.ErrorIs(t, err, models.ErrLocationUnavailable)
	assert.Empty(t, imprints.created)
}

func TestSubscribeImprints(t *testing.T) {
	e := newTestEngine(t, &fakeDropPointRepo{}, &fakeImprintRepo{})
	ch, cancel := e.SubscribeImprints()

	lat, lon := 45.5, -73.56
	_, err := e.LogImprint(context.Background(), models.LogImprintRequest{
		Action: models.ImprintStampUnlock, Latitude: &lat, Longitude: &lon,
	})
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, models.ImprintStampUnlock, got.Action)
	case <-time.After(time.Second):
		t.Fatal("no imprint event received")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}
