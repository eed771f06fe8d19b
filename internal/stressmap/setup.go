package stressmap

import (
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/sirupsen/logrus"
)

// BoundaryDDL creates the postal boundary table and its indexes. The rows are
// loaded by cmd/import-boundaries.
var BoundaryDDL = []string{
	`CREATE TABLE IF NOT EXISTS postal_boundaries (
		ogc_fid SERIAL PRIMARY KEY,
		wkb_geometry geometry(Geometry, 4326),
		pincode VARCHAR(6) NOT NULL,
		office_name TEXT,
		division TEXT,
		region TEXT,
		circle TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_postal_boundaries_geom ON postal_boundaries USING GIST (wkb_geometry)`,
	`CREATE INDEX IF NOT EXISTS idx_postal_boundaries_pincode ON postal_boundaries (pincode)`,
}

func Init() {
	if err := db.EnsureExtension(db.DB, "postgis"); err != nil {
		logrus.Fatal("Failed to ensure postgis extension: ", err)
	}
	for _, stmt := range BoundaryDDL {
		if err := db.DB.Exec(stmt).Error; err != nil {
			logrus.Fatal("Failed to ensure postal_boundaries: ", err)
		}
	}
}
