package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"p9e.in/loto/pkg/loto"
)

// UploadFileGCS handles machine image uploads to a Google Cloud Storage
// bucket. Bucket name comes from GCS_BUCKET; credentials are resolved
// by the client library (service account on Cloud Run, ADC locally).
func UploadFileGCS(w http.ResponseWriter, r *http.Request) {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		http.Error(w, "GCS_BUCKET is not configured", http.StatusInternalServerError)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	meta := &loto.ImageMeta{Name: header.Filename, MIMEType: header.Header.Get("Content-Type")}
	if res := loto.ValidateImage(meta); !res.Valid {
		http.Error(w, res.Message, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	client, err := storage.NewClient(ctx)
	if err != nil {
		http.Error(w, "failed to create storage client: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer client.Close()

	objectName := fmt.Sprintf("uploads/%s-%s", time.Now().Format("20060102-150405"), header.Filename)
	obj := client.Bucket(bucketName).Object(objectName)

	wc := obj.NewWriter(ctx)
	wc.ContentType = header.Header.Get("Content-Type")
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		http.Error(w, "failed to upload file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		http.Error(w, "failed to finalize upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucketName, objectName)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"url":      url,
		"filename": header.Filename,
	})
}
