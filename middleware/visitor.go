package middleware

import (
	"log"
	"net/http"

	"p9e.in/loto/config"
	"p9e.in/loto/models"
)

// GeoResolver maps a client IP to coordinates. The actual lookup is an
// external service; a nil resolver records the visit without coordinates.
type GeoResolver func(ip string) (lat, lng float64, ok bool)

// VisitLogger records each page visit for the map analytics view.
func VisitLogger(resolve GeoResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			visit := models.Visit{IP: ip, Path: r.URL.Path}
			if resolve != nil {
				if lat, lng, ok := resolve(ip); ok {
					visit.Latitude = lat
					visit.Longitude = lng
				}
			}
			if err := config.DB.Create(&visit).Error; err != nil {
				log.Printf("❌ Error recording visit from %s: %v", ip, err)
			}
			next.ServeHTTP(w, r)
		})
	}
}
