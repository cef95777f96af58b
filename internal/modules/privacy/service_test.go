package privacy

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quartier-geo/internal/geo"
	"quartier-geo/internal/models"
)

type fakeZoneRepo struct {
	zones []models.Zone
	err   error
	calls int
}

func (f *fakeZoneRepo) ListZones(ctx context.Context) ([]models.Zone, error) {
	f.calls++
	return f.zones, f.err
}

func newTestService(repo RepositoryInterface) *Service {
	s := NewService(repo, zap.NewNop(), 10000)
	s.randFloat = rand.New(rand.NewSource(42)).Float64
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestFuzzStaysWithinRadius(t *testing.T) {
	s := newTestService(&fakeZoneRepo{})
	origin := models.Coordinate{Latitude: 45.5017, Longitude: -73.5673}

	for i := 0; i < 500; i++ {
		fuzzy := s.Fuzz(origin, 1000)
		d := geo.Haversine(origin.Latitude, origin.Longitude, fuzzy.Latitude, fuzzy.Longitude)
		require.LessOrEqual(t, d, 1000*1.01+0.5, "draw %d escaped the radius", i)
	}
}

func TestFuzzIsNotDeterministic(t *testing.T) {
	s := newTestService(&fakeZoneRepo{})
	origin := models.Coordinate{Latitude: 45.5017, Longitude: -73.5673}

	a := s.Fuzz(origin, 1000)
	b := s.Fuzz(origin, 1000)
	assert.NotEqual(t, a.Coordinate, b.Coordinate)
}

func TestFuzzSubstitutesDefaultRadius(t *testing.T) {
	s := newTestService(&fakeZoneRepo{})
	origin := models.Coordinate{Latitude: 45.5017, Longitude: -73.5673}

	for _, radius := range []float64{0, -50} {
		fuzzy := s.Fuzz(origin, radius)
		assert.Equal(t, 10000.0, fuzzy.RadiusMeters)
		d := geo.Haversine(origin.Latitude, origin.Longitude, fuzzy.Latitude, fuzzy.Longitude)
		assert.LessOrEqual(t, d, 10000*1.01+0.5)
	}
}

func TestFuzzStampsGenerationTime(t *testing.T) {
	s := newTestService(&fakeZoneRepo{})
	fuzzy := s.Fuzz(models.Coordinate{Latitude: 45.5, Longitude: -73.56}, 800)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), fuzzy.GeneratedAt)
	assert.Equal(t, 800.0, fuzzy.RadiusMeters)
}

func TestResolveZonePicksNearestCenter(t *testing.T) {
	repo := &fakeZoneRepo{zones: []models.Zone{
		{Code: "NORTH", Name: "North End", Center: models.Coordinate{Latitude: 45.55, Longitude: -73.60}, RadiusMeters: 100},
		{Code: "SOUTH", Name: "South End", Center: models.Coordinate{Latitude: 45.45, Longitude: -73.55}, RadiusMeters: 100},
	}}
	s := newTestService(repo)

	// The point sits far outside both radii; assignment is by nearest
	// center, not containment.
	res := s.ResolveZone(context.Background(), models.Coordinate{Latitude: 45.54, Longitude: -73.59})
	assert.Equal(t, "NORTH", res.Code)
	assert.Equal(t, "North End", res.ZoneName)
	assert.False(t, res.Degraded)
	assert.Greater(t, res.DistanceMeters, 100.0)
}

func TestResolveZoneFallsBackOnLoadFailure(t *testing.T) {
	repo := &fakeZoneRepo{err: errors.New("connection refused")}
	s := newTestService(repo)

	res := s.ResolveZone(context.Background(), models.Coordinate{Latitude: 45.5227, Longitude: -73.5816})
	assert.Equal(t, "PMR", res.Code)
	assert.True(t, res.Degraded)

	// The directory is cached for the process lifetime; the failing load
	// is not retried per call.
	s.ResolveZone(context.Background(), models.Coordinate{Latitude: 45.4833, Longitude: -73.5978})
	assert.Equal(t, 1, repo.calls)
}

func TestResolveZoneFallsBackOnEmptyDirectory(t *testing.T) {
	s := newTestService(&fakeZoneRepo{zones: nil})

	res := s.ResolveZone(context.Background(), models.Coordinate{Latitude: 45.4833, Longitude: -73.5978})
	assert.Equal(t, "WMT", res.Code)
	assert.True(t, res.Degraded)
}

func TestResolveZoneUnknownWithNoZonesAtAll(t *testing.T) {
	s := newTestService(&fakeZoneRepo{})
	s.loaded = true
	s.degraded = true
	s.zones = nil

	res := s.ResolveZone(context.Background(), models.Coordinate{Latitude: 45.5, Longitude: -73.56})
	assert.Equal(t, models.ZoneCodeUnknown, res.Code)
	assert.True(t, res.Degraded)
}

func TestZonesReportsDegradedFlag(t *testing.T) {
	healthy := newTestService(&fakeZoneRepo{zones: []models.Zone{{Code: "A", Center: models.Coordinate{Latitude: 1, Longitude: 1}}}})
	resp := healthy.Zones(context.Background())
	assert.False(t, resp.Degraded)
	assert.Len(t, resp.Zones, 1)

	degraded := newTestService(&fakeZoneRepo{err: errors.New("boom")})
	resp = degraded.Zones(context.Background())
	assert.True(t, resp.Degraded)
	assert.Len(t, resp.Zones, 3)
}
