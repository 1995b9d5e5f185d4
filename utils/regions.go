package utils

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Region is one named boundary from the loaded geometry files: a
// country or a US state, with the color the map view renders it in.
type Region struct {
	Name     string
	Color    string
	geometry orb.Geometry
}

// RegionIndex answers point-in-region queries for the visitor map.
// Countries and US states are kept separate so a hit inside the US
// can be attributed to both levels.
type RegionIndex struct {
	Countries []Region
	USStates  []Region
}

// NewRegionIndex builds an index from GeoJSON feature collections.
// Either argument may be nil when that layer is not configured.
func NewRegionIndex(countries, usStates *geojson.FeatureCollection) *RegionIndex {
	idx := &RegionIndex{}
	idx.Countries = regionsFromCollection(countries)
	idx.USStates = regionsFromCollection(usStates)
	return idx
}

// LoadRegionIndex reads the two boundary files. Missing files are not
// an error; the corresponding layer is just empty.
func LoadRegionIndex(countriesPath, usStatesPath string) (*RegionIndex, error) {
	countries, err := loadCollection(countriesPath)
	if err != nil {
		return nil, err
	}
	usStates, err := loadCollection(usStatesPath)
	if err != nil {
		return nil, err
	}
	return NewRegionIndex(countries, usStates), nil
}

func loadCollection(path string) (*geojson.FeatureCollection, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func regionsFromCollection(fc *geojson.FeatureCollection) []Region {
	if fc == nil {
		return nil
	}
	regions := make([]Region, 0, len(fc.Features))
	for _, feat := range fc.Features {
		name := featureName(feat)
		if name == "" {
			continue
		}
		regions = append(regions, Region{
			Name:     name,
			Color:    feat.Properties.MustString("color", ""),
			geometry: feat.Geometry,
		})
	}
	return regions
}

func featureName(feat *geojson.Feature) string {
	for _, key := range []string{"name", "NAME", "admin", "ADMIN"} {
		if v := feat.Properties.MustString(key, ""); v != "" {
			return v
		}
	}
	return ""
}

// LocateCountry returns the country containing the point, if any.
func (idx *RegionIndex) LocateCountry(lat, lng float64) (Region, bool) {
	return locate(idx.Countries, lat, lng)
}

// LocateUSState returns the US state containing the point, if any.
func (idx *RegionIndex) LocateUSState(lat, lng float64) (Region, bool) {
	return locate(idx.USStates, lat, lng)
}

func locate(regions []Region, lat, lng float64) (Region, bool) {
	pt := orb.Point{lng, lat}
	for _, region := range regions {
		if geometryContains(region.geometry, pt) {
			return region, true
		}
	}
	return Region{}, false
}

func geometryContains(geom orb.Geometry, pt orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	default:
		return false
	}
}
