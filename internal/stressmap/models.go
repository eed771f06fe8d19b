package stressmap

import "github.com/mindbloom/mindbloom-backend/internal/assessment"

// Region is the descriptive part of a postal boundary row.
type Region struct {
	Pincode    string `gorm:"column:pincode" json:"pincode"`
	OfficeName string `gorm:"column:office_name" json:"office_name"`
	Division   string `gorm:"column:division" json:"division"`
	Region     string `gorm:"column:region" json:"region"`
	Circle     string `gorm:"column:circle" json:"circle"`
}

// Boundary is a region with its polygon as WKB.
type Boundary struct {
	Region
	Geometry []byte `gorm:"column:geom" json:"-"`
}

// BoundaryFilter narrows boundary listings. Empty fields match everything;
// comparisons ignore case.
type BoundaryFilter struct {
	Region string
	Circle string
}

// MapFilter selects regions for the stress map.
type MapFilter struct {
	MinAssessments int
	StressLevel    assessment.Level
	Region         string
}

// MapRegion joins a boundary with its aggregate and derived level.
type MapRegion struct {
	Boundary
	Aggregate assessment.RegionAggregate
	Level     assessment.Level
	Color     string
}

// BoundaryPage is one page of a boundary listing.
type BoundaryPage struct {
	Boundaries []Boundary
	Total      int64
	Limit      int
	Offset     int
}
