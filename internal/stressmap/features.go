package stressmap

import (
	"fmt"

	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func regionProperties(r Region) map[string]interface{} {
	return map[string]interface{}{
		"pincode":     r.Pincode,
		"office_name": r.OfficeName,
		"division":    r.Division,
		"region":      r.Region,
		"circle":      r.Circle,
	}
}

// BoundaryFeature decodes the WKB polygon into a GeoJSON feature.
func BoundaryFeature(b Boundary) (*geojson.Feature, error) {
	if len(b.Geometry) == 0 {
		return nil, fmt.Errorf("pincode %s has no geometry", b.Pincode)
	}
	g, err := wkb.Unmarshal(b.Geometry)
	if err != nil {
		return nil, fmt.Errorf("decode geometry for pincode %s: %w", b.Pincode, err)
	}
	return &geojson.Feature{
		Geometry:   g,
		Properties: regionProperties(b.Region),
	}, nil
}

// MapFeature is a boundary feature carrying its stress statistics.
func MapFeature(m MapRegion) (*geojson.Feature, error) {
	f, err := BoundaryFeature(m.Boundary)
	if err != nil {
		return nil, err
	}
	a := m.Aggregate
	f.Properties["total_assessments"] = a.TotalAssessments
	f.Properties["average_score"] = assessment.Round2(a.AverageScore)
	f.Properties["stress_level"] = m.Level
	f.Properties["color"] = m.Color
	f.Properties["distribution"] = map[string]int{
		"excellent":  a.ExcellentCount,
		"good":       a.GoodCount,
		"moderate":   a.ModerateCount,
		"concerning": a.ConcerningCount,
	}
	return f, nil
}

// boundaryFeatures converts boundaries, skipping ones that fail to decode.
func boundaryFeatures(bs []Boundary) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(bs))
	for _, b := range bs {
		f, err := BoundaryFeature(b)
		if err != nil {
			logrus.WithError(err).WithField("pincode", b.Pincode).Warn("skipping boundary")
			continue
		}
		out = append(out, f)
	}
	return out
}

func mapFeatures(ms []MapRegion) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(ms))
	for _, m := range ms {
		f, err := MapFeature(m)
		if err != nil {
			logrus.WithError(err).WithField("pincode", m.Pincode).Warn("skipping map region")
			continue
		}
		out = append(out, f)
	}
	return out
}
