package stressmap

import (
	"context"
	"math"

	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Lookup is the boundary storage the service reads from.
type Lookup interface {
	FindContaining(ctx context.Context, lat, lng float64) (*Region, error)
	Boundary(ctx context.Context, pincode string) (*Boundary, error)
	ListBoundaries(ctx context.Context, f BoundaryFilter, limit, offset int) ([]Boundary, int64, error)
	BoundariesFor(ctx context.Context, pincodes []string, region string) ([]Boundary, error)
}

// AggregateSource lists region aggregates; assessment.Repository satisfies it.
type AggregateSource interface {
	ListAggregates(ctx context.Context, minAssessments int) ([]assessment.RegionAggregate, error)
}

type Service struct {
	Lookup     Lookup
	Aggregates AggregateSource
}

func NewService(lookup Lookup, aggregates AggregateSource) *Service {
	return &Service{Lookup: lookup, Aggregates: aggregates}
}

// ValidateCoordinates checks WGS84 ranges. Zero is a valid coordinate.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return utils.Invalid("latitude", "Invalid coordinates")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return utils.Invalid("longitude", "Invalid coordinates")
	}
	return nil
}

// Locate returns the region containing the point.
func (s *Service) Locate(ctx context.Context, lat, lng float64) (*Region, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	region, err := s.Lookup.FindContaining(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, utils.NotFound("region at point", "")
	}
	return region, nil
}

func (s *Service) Boundary(ctx context.Context, pincode string) (*Boundary, error) {
	if !utils.IsPincode(pincode) {
		return nil, utils.Invalid("pincode", "Invalid pincode format")
	}
	b, err := s.Lookup.Boundary(ctx, pincode)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, utils.NotFound("boundary", pincode)
	}
	return b, nil
}

// ListBoundaries pages through boundaries. Limits above MaxPageLimit are
// capped.
func (s *Service) ListBoundaries(ctx context.Context, f BoundaryFilter, limit, offset int) (*BoundaryPage, error) {
	if limit < 0 {
		return nil, utils.Invalid("limit", "Invalid pagination parameters")
	}
	if offset < 0 {
		return nil, utils.Invalid("offset", "Invalid pagination parameters")
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	boundaries, total, err := s.Lookup.ListBoundaries(ctx, f, limit, offset)
	if err != nil {
		return nil, err
	}
	return &BoundaryPage{Boundaries: boundaries, Total: total, Limit: limit, Offset: offset}, nil
}

// MapData joins boundaries with aggregates that pass the filter.
func (s *Service) MapData(ctx context.Context, f MapFilter) ([]MapRegion, error) {
	if f.MinAssessments < 0 {
		return nil, utils.Invalid("min_assessments", "Invalid filter parameters")
	}
	if f.StressLevel != "" && !f.StressLevel.Valid() {
		return nil, utils.Invalid("stress_level", "Invalid filter parameters")
	}

	aggs, err := s.Aggregates.ListAggregates(ctx, f.MinAssessments)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]assessment.RegionAggregate, len(aggs))
	codes := make([]string, 0, len(aggs))
	for _, a := range aggs {
		level, _ := a.StressLevel()
		if f.StressLevel != "" && level != f.StressLevel {
			continue
		}
		byCode[a.Pincode] = a
		codes = append(codes, a.Pincode)
	}
	if len(codes) == 0 {
		return []MapRegion{}, nil
	}

	boundaries, err := s.Lookup.BoundariesFor(ctx, codes, f.Region)
	if err != nil {
		return nil, err
	}

	out := make([]MapRegion, 0, len(boundaries))
	for _, b := range boundaries {
		agg, ok := byCode[b.Pincode]
		if !ok {
			continue
		}
		level, color := agg.StressLevel()
		out = append(out, MapRegion{Boundary: b, Aggregate: agg, Level: level, Color: color})
	}
	return out, nil
}
