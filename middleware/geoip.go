package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

var geoClient = &http.Client{Timeout: 3 * time.Second}

type geoResponse struct {
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// HTTPGeoResolver looks up client coordinates against an ip-api style
// endpoint named by GEOIP_URL. Returns nil when no endpoint is
// configured so visits are still recorded, just without coordinates.
func HTTPGeoResolver() GeoResolver {
	base := os.Getenv("GEOIP_URL")
	if base == "" {
		return nil
	}
	return func(ip string) (float64, float64, bool) {
		resp, err := geoClient.Get(fmt.Sprintf("%s/%s", base, ip))
		if err != nil {
			return 0, 0, false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return 0, 0, false
		}
		var geo geoResponse
		if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
			return 0, 0, false
		}
		if geo.Status != "" && geo.Status != "success" {
			return 0, 0, false
		}
		return geo.Lat, geo.Lon, true
	}
}
