package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"p9e.in/loto/config"
	"p9e.in/loto/middleware"
	"p9e.in/loto/models"
	"p9e.in/loto/pkg/loto"
)

const maxUploadBytes = 50 << 20 // 50MB, matches the file upload endpoints

// maxSources is the server-side counterpart of the form's source cap,
// overridable through LOTO_MAX_SOURCES.
func maxSources() int {
	if v := os.Getenv("LOTO_MAX_SOURCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return loto.DefaultMaxSources
}

// UploadReport accepts a generated report document plus its image
// attachments and metadata, and stores them under a unique report name.
// A name collision without overwrite=true is answered with a suggested
// disambiguated name so the client can retry; the submitted form state
// is never lost on the way.
// POST /api/v1/reports/upload  (multipart: document, photos..., name, tags, notes, overwrite)
func UploadReport(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	docBytes, err := readDocumentPart(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := loto.ParseDocument(docBytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if max := maxSources(); len(doc.Sources) > max {
		http.Error(w, fmt.Sprintf("document exceeds the %d source limit", max), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSpace(doc.Name)
	}
	if name == "" {
		name = time.Now().Format("20060102") + "_untitledReport"
	}

	overwrite := r.FormValue("overwrite") == "true"
	var existing models.Report
	exists := config.DB.Where("name = ?", name).First(&existing).Error == nil
	if exists && !overwrite {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"error":          "a report with this name already exists",
			"suggested_name": nextAvailableName(name),
		})
		return
	}

	// Store attachments with content dedup; only names the document
	// actually references are accepted.
	referenced := make(map[string]bool)
	for _, n := range doc.PhotoNames() {
		referenced[n] = true
	}
	var attachments []models.PhotoAttachment
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["photos"] {
			if !referenced[fh.Filename] {
				log.Printf("Skipping photo %s: not referenced by document", fh.Filename)
				continue
			}
			hash, err := savePhotoDedup(fh)
			if err != nil {
				http.Error(w, "failed to store photo "+fh.Filename+": "+err.Error(), http.StatusInternalServerError)
				return
			}
			attachments = append(attachments, models.PhotoAttachment{PhotoName: fh.Filename, PhotoHash: hash})
		}
	}
	photosJSON, _ := json.Marshal(attachments)

	userID, _ := uuid.Parse(claims.UserID)
	report := models.Report{
		Name:     name,
		Document: datatypes.JSON(docBytes),
		Photos:   datatypes.JSON(photosJSON),
		Tags:     splitTags(r.FormValue("tags")),
		Notes:    r.FormValue("notes"),
	}
	if meta := r.FormValue("metadata"); meta != "" {
		if !json.Valid([]byte(meta)) {
			http.Error(w, "metadata must be a JSON object", http.StatusBadRequest)
			return
		}
		report.Metadata = datatypes.JSON(meta)
	}
	if userID != uuid.Nil {
		report.UploadedByID = &userID
	}

	if exists {
		updates := map[string]interface{}{
			"document":       report.Document,
			"photos":         report.Photos,
			"tags":           report.Tags,
			"notes":          report.Notes,
			"uploaded_by_id": report.UploadedByID,
		}
		if report.Metadata != nil {
			updates["metadata"] = report.Metadata
		}
		err = config.DB.Model(&existing).Updates(updates).Error
	} else {
		err = config.DB.Create(&report).Error
	}
	if err != nil {
		log.Printf("❌ Error storing report %s: %v", name, err)
		http.Error(w, "failed to store report", http.StatusInternalServerError)
		return
	}

	accepted := make([]string, len(attachments))
	for i, a := range attachments {
		accepted[i] = a.PhotoName
	}
	log.Printf("✅ Stored report %s with %d photos", name, len(accepted))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"report_name":     name,
		"accepted_photos": accepted,
	})
}

// readDocumentPart accepts the document either as a file part or a
// plain form field named "document".
func readDocumentPart(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("document")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("read document part: %w", err)
		}
		return data, nil
	}
	if v := r.FormValue("document"); v != "" {
		return []byte(v), nil
	}
	return nil, fmt.Errorf("missing document field")
}

// nextAvailableName appends the lowest numeric suffix that is not yet
// taken: name_2, name_3, ...
func nextAvailableName(name string) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		var count int64
		config.DB.Model(&models.Report{}).Where("name = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// savePhotoDedup stores an uploaded image, reusing an existing row when
// the content hash already exists.
func savePhotoDedup(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	var existing models.Photo
	if err := config.DB.Where("hash = ?", hash).First(&existing).Error; err == nil {
		return hash, nil
	}
	photo := models.Photo{
		Name:        fh.Filename,
		Hash:        hash,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}
	if err := config.DB.Create(&photo).Error; err != nil {
		return "", err
	}
	return hash, nil
}

// ListReports returns one page of stored reports for the list view.
// GET /api/v1/reports?page=1&per_page=25
func ListReports(w http.ResponseWriter, r *http.Request) {
	page := 1
	perPage := 25
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 && pp <= 100 {
		perPage = pp
	}
	offset := (page - 1) * perPage

	var total int64
	if err := config.DB.Model(&models.Report{}).Count(&total).Error; err != nil {
		http.Error(w, "DB count error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var reports []models.Report
	if err := config.DB.
		Preload("UploadedBy").
		Order("date_added DESC").
		Limit(perPage).
		Offset(offset).
		Find(&reports).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]models.ReportListItem, len(reports))
	for i, rep := range reports {
		var attachments []models.PhotoAttachment
		json.Unmarshal(rep.Photos, &attachments)
		item := models.ReportListItem{
			Name:          rep.Name,
			DateAdded:     rep.DateAdded,
			LastGenerated: rep.LastGenerated,
			PhotoCount:    len(attachments),
		}
		if rep.UploadedBy != nil {
			item.UploadedBy = rep.UploadedBy.Username
		}
		items[i] = item
	}

	totalPages := (total + int64(perPage) - 1) / int64(perPage)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reports":     items,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": totalPages,
	})
}

// GetReportJSON returns the stored document for the update-report flow;
// the response is exactly what deserialization expects.
// GET /api/v1/reports/{name}/json
func GetReportJSON(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var report models.Report
	if err := config.DB.Where("name = ?", name).First(&report).Error; err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(report.Document)
}

type renameReq struct {
	NewName string `json:"new_name"`
}

// RenameReport changes a report's stored name.
// PUT /api/v1/reports/{name}/rename
func RenameReport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req renameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	newName := strings.TrimSpace(req.NewName)
	if newName == "" {
		http.Error(w, "new_name is required", http.StatusBadRequest)
		return
	}

	var report models.Report
	if err := config.DB.Where("name = ?", name).First(&report).Error; err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if err := config.DB.Model(&report).Update("name", newName).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{
				"error":          "a report with this name already exists",
				"suggested_name": nextAvailableName(newName),
			})
			return
		}
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Renamed report %s to %s", name, newName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"name": newName})
}

// DeleteReport soft-deletes a stored report.
// DELETE /api/v1/reports/{name}
func DeleteReport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	res := config.DB.Where("name = ?", name).Delete(&models.Report{})
	if res.Error != nil {
		http.Error(w, "db error: "+res.Error.Error(), http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findReport is shared by the PDF handlers.
func findReport(db *gorm.DB, name string) (*models.Report, error) {
	var report models.Report
	if err := db.Where("name = ?", name).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}
