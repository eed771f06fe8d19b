package stressmap

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"gorm.io/gorm"
)

const boundaryColumns = `
	pincode,
	COALESCE(office_name, '') AS office_name,
	COALESCE(division, '') AS division,
	COALESCE(region, '') AS region,
	COALESCE(circle, '') AS circle`

// Store reads postal boundaries from PostGIS.
type Store struct {
	DB *gorm.DB
}

func NewStore(d *gorm.DB) *Store {
	return &Store{DB: d}
}

func (s *Store) RegionExists(ctx context.Context, pincode string) (bool, error) {
	var exists bool
	err := s.DB.WithContext(ctx).
		Raw(`SELECT EXISTS (SELECT 1 FROM postal_boundaries WHERE pincode = ?)`, pincode).
		Scan(&exists).Error
	if err != nil {
		return false, utils.Store("check region exists", err)
	}
	return exists, nil
}

// FindContaining returns the first region whose polygon contains the point,
// or nil when none does.
func (s *Store) FindContaining(ctx context.Context, lat, lng float64) (*Region, error) {
	query := `
		SELECT` + boundaryColumns + `
		FROM postal_boundaries
		WHERE wkb_geometry IS NOT NULL
		  AND ST_Contains(wkb_geometry, ST_SetSRID(ST_MakePoint(?, ?), 4326))
		ORDER BY ogc_fid
		LIMIT 1
	`

	var regions []Region
	if err := s.DB.WithContext(ctx).Raw(query, lng, lat).Scan(&regions).Error; err != nil {
		return nil, utils.Store("point in polygon lookup", err)
	}
	if len(regions) == 0 {
		return nil, nil
	}
	return &regions[0], nil
}

// Boundary returns the boundary for pincode, or nil when it is missing or has
// no geometry.
func (s *Store) Boundary(ctx context.Context, pincode string) (*Boundary, error) {
	query := `
		SELECT` + boundaryColumns + `,
			ST_AsBinary(wkb_geometry) AS geom
		FROM postal_boundaries
		WHERE pincode = ? AND wkb_geometry IS NOT NULL
		ORDER BY ogc_fid
		LIMIT 1
	`

	var out []Boundary
	if err := s.DB.WithContext(ctx).Raw(query, pincode).Scan(&out).Error; err != nil {
		return nil, utils.Store("load boundary", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func filterClause(f BoundaryFilter) (string, []any) {
	conds := []string{"wkb_geometry IS NOT NULL"}
	var args []any
	if f.Region != "" {
		conds = append(conds, "LOWER(region) = LOWER(?)")
		args = append(args, f.Region)
	}
	if f.Circle != "" {
		conds = append(conds, "LOWER(circle) = LOWER(?)")
		args = append(args, f.Circle)
	}
	return strings.Join(conds, " AND "), args
}

// ListBoundaries returns one page of boundaries plus the unpaged total.
func (s *Store) ListBoundaries(ctx context.Context, f BoundaryFilter, limit, offset int) ([]Boundary, int64, error) {
	where, args := filterClause(f)
	d := s.DB.WithContext(ctx)

	var total int64
	if err := d.Raw(`SELECT COUNT(*) FROM postal_boundaries WHERE `+where, args...).Scan(&total).Error; err != nil {
		return nil, 0, utils.Store("count boundaries", err)
	}

	query := fmt.Sprintf(`
		SELECT%s,
			ST_AsBinary(wkb_geometry) AS geom
		FROM postal_boundaries
		WHERE %s
		ORDER BY pincode, ogc_fid
		LIMIT ? OFFSET ?
	`, boundaryColumns, where)

	var out []Boundary
	if err := d.Raw(query, append(args, limit, offset)...).Scan(&out).Error; err != nil {
		return nil, 0, utils.Store("list boundaries", err)
	}
	return out, total, nil
}

// BoundariesFor batch-loads the geometries of the given pincodes, optionally
// limited to one postal region.
func (s *Store) BoundariesFor(ctx context.Context, pincodes []string, region string) ([]Boundary, error) {
	if len(pincodes) == 0 {
		return []Boundary{}, nil
	}

	where, args := filterClause(BoundaryFilter{Region: region})
	query := fmt.Sprintf(`
		SELECT%s,
			ST_AsBinary(wkb_geometry) AS geom
		FROM postal_boundaries
		WHERE pincode = ANY(?) AND %s
		ORDER BY pincode, ogc_fid
	`, boundaryColumns, where)

	var out []Boundary
	err := s.DB.WithContext(ctx).Raw(query, append([]any{pq.Array(pincodes)}, args...)...).Scan(&out).Error
	if err != nil {
		return nil, utils.Store("load boundaries by pincode", err)
	}
	return out, nil
}
