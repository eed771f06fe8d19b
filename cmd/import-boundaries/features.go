package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// BoundaryRow is one postal_boundaries row ready for insertion.
type BoundaryRow struct {
	Pincode    string
	OfficeName string
	Division   string
	Region     string
	Circle     string
	WKB        []byte
}

// Property names seen in the India Post boundary exports, most specific first.
var (
	pincodeKeys  = []string{"pincode", "Pincode", "PINCODE", "pin_code"}
	officeKeys   = []string{"office_name", "officename", "OfficeName", "Office_Name"}
	divisionKeys = []string{"division", "divisionname", "Division", "DivisionName"}
	regionKeys   = []string{"region", "regionname", "Region", "RegionName"}
	circleKeys   = []string{"circle", "circlename", "Circle", "CircleName"}
)

// str returns the first non-empty property among keys as a string.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// LoadFeatures reads a GeoJSON FeatureCollection and converts every usable
// feature. Features without a valid pincode or geometry are reported in
// skipped rather than failing the whole file.
func LoadFeatures(path string) (rows []BoundaryRow, skipped []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseFeatures(data)
}

func parseFeatures(data []byte) ([]BoundaryRow, []string, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, nil, fmt.Errorf("decode feature collection: %w", err)
	}

	var (
		rows    []BoundaryRow
		skipped []string
	)
	for i, f := range fc.Features {
		pincode := str(f.Properties, pincodeKeys...)
		if !utils.IsPincode(pincode) {
			skipped = append(skipped, fmt.Sprintf("feature %d: invalid pincode %q", i, pincode))
			continue
		}
		if f.Geometry == nil {
			skipped = append(skipped, fmt.Sprintf("feature %d (%s): missing geometry", i, pincode))
			continue
		}
		b, err := wkb.Marshal(f.Geometry, binary.LittleEndian)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("feature %d (%s): %v", i, pincode, err))
			continue
		}
		rows = append(rows, BoundaryRow{
			Pincode:    pincode,
			OfficeName: str(f.Properties, officeKeys...),
			Division:   str(f.Properties, divisionKeys...),
			Region:     str(f.Properties, regionKeys...),
			Circle:     str(f.Properties, circleKeys...),
			WKB:        b,
		})
	}
	return rows, skipped, nil
}
