// Package privacy implements the location privacy engine: coordinate
// fuzzing for public display and nearest-zone resolution against the
// service-zone directory.
package privacy

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"quartier-geo/internal/geo"
	"quartier-geo/internal/models"
)

// fallbackZones is the hardcoded directory substituted when the external
// zone load fails. Immutable, process-local, safe to share without locking.
var fallbackZones = []models.Zone{
	{
		ID: "fallback-plateau", Name: "Plateau-Mont-Royal", Code: "PMR",
		Classification: "residential",
		Center:         models.Coordinate{Latitude: 45.5227, Longitude: -73.5816},
		RadiusMeters:   3200, DemandTier: models.DemandHigh, PriceMultiplier: 1.35,
	},
	{
		ID: "fallback-downtown", Name: "Downtown Montreal", Code: "DTM",
		Classification: "commercial",
		Center:         models.Coordinate{Latitude: 45.5017, Longitude: -73.5673},
		RadiusMeters:   2500, DemandTier: models.DemandHigh, PriceMultiplier: 1.20,
	},
	{
		ID: "fallback-westmount", Name: "Westmount", Code: "WMT",
		Classification: "premium",
		Center:         models.Coordinate{Latitude: 45.4833, Longitude: -73.5978},
		RadiusMeters:   4000, DemandTier: models.DemandMedium, PriceMultiplier: 1.50,
	},
}

// ServiceInterface defines the privacy engine operations.
type ServiceInterface interface {
	Fuzz(trueCoord models.Coordinate, radiusMeters float64) models.FuzzyLocation
	ResolveZone(ctx context.Context, coord models.Coordinate) models.ZoneResolution
	Zones(ctx context.Context) models.ZoneListResponse
}

// Service implements ServiceInterface. The zone directory is loaded once
// per process lifetime; a failed load switches the service into a degraded
// mode that serves the hardcoded fallback set. Zone resolution never fails.
type Service struct {
	repo   RepositoryInterface
	logger *zap.Logger

	defaultFuzzRadius float64
	randFloat         func() float64
	now               func() time.Time

	mu       sync.Mutex
	loaded   bool
	degraded bool
	zones    []models.Zone
}

// NewService creates the privacy engine. defaultFuzzRadius substitutes for
// non-positive fuzz radii.
func NewService(repo RepositoryInterface, logger *zap.Logger, defaultFuzzRadius float64) *Service {
	return &Service{
		repo:              repo,
		logger:            logger,
		defaultFuzzRadius: defaultFuzzRadius,
		randFloat:         rand.Float64,
		now:               time.Now,
	}
}

// Fuzz produces a randomized coordinate within radiusMeters of the true
// coordinate. The random distance is uniform in [0, radius] rather than
// uniform in area, so fuzzy points cluster toward the center; that matches
// the product behavior and is kept intentionally.
//
// This is obfuscation, not a security boundary: the offset distribution is
// centered on the true point, so an observer collecting many fuzzes of the
// same coordinate can average them to approximately recover it.
func (s *Service) Fuzz(trueCoord models.Coordinate, radiusMeters float64) models.FuzzyLocation {
	if radiusMeters <= 0 {
		s.logger.Warn("fuzz called with non-positive radius, using default",
			zap.Float64("radius_m", radiusMeters),
			zap.Float64("default_m", s.defaultFuzzRadius))
		radiusMeters = s.defaultFuzzRadius
	}

	angle := s.randFloat() * 2 * math.Pi
	distance := s.randFloat() * radiusMeters

	lat, lon := geo.OffsetByPolar(trueCoord.Latitude, trueCoord.Longitude, distance, angle)

	return models.FuzzyLocation{
		Coordinate:   models.Coordinate{Latitude: lat, Longitude: lon},
		RadiusMeters: radiusMeters,
		GeneratedAt:  s.now(),
	}
}

// ResolveZone assigns the coordinate to the zone with the nearest center.
// The zone radius is not a containment test: a point outside every radius
// still resolves to its geometrically nearest zone. With no zones loaded
// at all the sentinel UNKNOWN code is returned; this method never errors.
func (s *Service) ResolveZone(ctx context.Context, coord models.Coordinate) models.ZoneResolution {
	zones, degraded := s.directory(ctx)
	if len(zones) == 0 {
		return models.ZoneResolution{Code: models.ZoneCodeUnknown, Degraded: degraded}
	}

	best := zones[0]
	bestDist := geo.Haversine(coord.Latitude, coord.Longitude, best.Center.Latitude, best.Center.Longitude)
	for _, z := range zones[1:] {
		d := geo.Haversine(coord.Latitude, coord.Longitude, z.Center.Latitude, z.Center.Longitude)
		if d < bestDist {
			best = z
			bestDist = d
		}
	}

	return models.ZoneResolution{
		Code:           best.Code,
		ZoneName:       best.Name,
		DistanceMeters: bestDist,
		Degraded:       degraded,
	}
}

// Zones returns the currently loaded directory plus the degraded flag.
func (s *Service) Zones(ctx context.Context) models.ZoneListResponse {
	zones, degraded := s.directory(ctx)
	return models.ZoneListResponse{Zones: zones, Degraded: degraded}
}

// directory returns the cached zone list, loading it on first use. A load
// failure is an explicit, logged branch onto the fallback set; the result
// is cached either way for the rest of the process lifetime.
func (s *Service) directory(ctx context.Context) ([]models.Zone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.zones, s.degraded
	}

	zones, err := s.repo.ListZones(ctx)
	switch {
	case err != nil:
		s.logger.Warn("zone directory load failed, serving fallback zones", zap.Error(err))
		s.zones = fallbackZones
		s.degraded = true
	case len(zones) == 0:
		s.logger.Warn("zone directory is empty, serving fallback zones")
		s.zones = fallbackZones
		s.degraded = true
	default:
		s.zones = zones
		s.degraded = false
	}
	s.loaded = true

	return s.zones, s.degraded
}
