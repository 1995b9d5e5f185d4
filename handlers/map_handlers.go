package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"p9e.in/loto/config"
	"p9e.in/loto/models"
	"p9e.in/loto/utils"
)

// Regions holds the boundary index for the visitor map. Nil until
// InitRegions runs; the summary endpoint degrades to empty layers.
var Regions *utils.RegionIndex

// InitRegions loads the country and US state boundary files named by
// COUNTRIES_GEOJSON and US_STATES_GEOJSON.
func InitRegions() error {
	idx, err := utils.LoadRegionIndex(os.Getenv("COUNTRIES_GEOJSON"), os.Getenv("US_STATES_GEOJSON"))
	if err != nil {
		return err
	}
	Regions = idx
	log.Printf("📋 Region index: %d countries, %d US states", len(idx.Countries), len(idx.USStates))
	return nil
}

type regionSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color,omitempty"`
}

// GetLocationsSummary aggregates recorded visits into per-country and
// per-US-state counts for the map view.
// GET /locations_summary
func GetLocationsSummary(w http.ResponseWriter, r *http.Request) {
	var visits []models.Visit
	if err := config.DB.Find(&visits).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	countryCounts := make(map[string]*regionSummary)
	stateCounts := make(map[string]*regionSummary)

	if Regions != nil {
		for _, v := range visits {
			if v.Latitude == 0 && v.Longitude == 0 {
				continue
			}
			if region, ok := Regions.LocateCountry(v.Latitude, v.Longitude); ok {
				bump(countryCounts, region)
				if region.Name == "United States of America" || region.Name == "United States" {
					if state, ok := Regions.LocateUSState(v.Latitude, v.Longitude); ok {
						bump(stateCounts, state)
					}
				}
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_visits": len(visits),
		"countries":    toList(countryCounts),
		"us_states":    toList(stateCounts),
	})
}

func bump(m map[string]*regionSummary, region utils.Region) {
	if s, ok := m[region.Name]; ok {
		s.Count++
		return
	}
	m[region.Name] = &regionSummary{Name: region.Name, Count: 1, Color: region.Color}
}

func toList(m map[string]*regionSummary) []regionSummary {
	out := make([]regionSummary, 0, len(m))
	for _, s := range m {
		out = append(out, *s)
	}
	return out
}
