package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/loto/config"
)

// rendererURL locates the external PDF rendering service. The form app
// itself never lays out PDFs; it posts the canonical document and
// streams back the result.
func rendererURL() string {
	if url := os.Getenv("PDF_RENDERER_URL"); url != "" {
		return url
	}
	return "http://localhost:9090/render"
}

var rendererClient = &http.Client{Timeout: 60 * time.Second}

// GeneratePDF posts a stored report's document to the rendering service
// and streams the PDF back to the caller. On success the report's
// last_generated timestamp and pdf file name are updated.
// POST /api/v1/reports/{name}/generate
func GeneratePDF(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	report, err := findReport(config.DB, name)
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, rendererURL(), bytes.NewReader(report.Document))
	if err != nil {
		http.Error(w, "failed to build renderer request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rendererClient.Do(req)
	if err != nil {
		log.Printf("❌ PDF renderer unreachable for %s: %v", name, err)
		http.Error(w, "pdf renderer unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("❌ PDF renderer returned %d for %s: %s", resp.StatusCode, name, body)
		http.Error(w, "pdf renderer failed", http.StatusBadGateway)
		return
	}

	pdfName := fmt.Sprintf("%s.pdf", name)
	now := time.Now()
	if err := config.DB.Model(report).Updates(map[string]interface{}{
		"last_generated": now,
		"pdf_file_name":  pdfName,
	}).Error; err != nil {
		log.Printf("❌ Failed to record generation for %s: %v", name, err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfName))
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("❌ Error streaming PDF for %s: %v", name, err)
	}
}

// FetchPDF renders and streams a report's PDF without touching the
// generation bookkeeping; used by the read-only viewer.
// GET /api/v1/reports/{name}/pdf
func FetchPDF(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	report, err := findReport(config.DB, name)
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, rendererURL(), bytes.NewReader(report.Document))
	if err != nil {
		http.Error(w, "failed to build renderer request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rendererClient.Do(req)
	if err != nil {
		http.Error(w, "pdf renderer unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, "pdf renderer failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+".pdf"))
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("❌ Error streaming PDF for %s: %v", name, err)
	}
}

// DownloadDocument serves the canonical JSON document as a file
// download, named after the report.
// GET /api/v1/reports/{name}/download
func DownloadDocument(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	report, err := findReport(config.DB, name)
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".json"))
	w.Write(report.Document)
}

// RendererHealth reports whether the PDF rendering service answers.
// GET /api/v1/renderer/health
func RendererHealth(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rendererURL(), nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp, err := rendererClient.Do(req)
	status := "ok"
	if err != nil {
		status = "unreachable"
	} else {
		resp.Body.Close()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"renderer": status})
}
