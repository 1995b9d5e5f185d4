package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"p9e.in/loto/config"
	"p9e.in/loto/models"
)

// GetPhotoByName serves a stored report image by its original filename.
// When several uploads share a name the newest one wins, which matches
// how viewers resolve images from the latest document revision.
// GET /photo_by_name/{name}
func GetPhotoByName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var photo models.Photo
	if err := config.DB.Where("name = ?", name).Order("created_at DESC").First(&photo).Error; err != nil {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	contentType := photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(photo.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(photo.Data)
}

// GetPhotoByHash serves a stored image by its content hash. Hashes are
// stable across renames so clients can cache aggressively.
// GET /photo/{hash}
func GetPhotoByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	var photo models.Photo
	if err := config.DB.Where("hash = ?", hash).First(&photo).Error; err != nil {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	contentType := photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(photo.Data)
}
