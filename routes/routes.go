package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/loto/handlers"
	"p9e.in/loto/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.VisitLogger(middleware.HTTPGeoResolver()))

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/register", handlers.Register).Methods("POST")
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.HandleFunc("/token", handlers.GetCurrentUser).Methods("GET")
	r.HandleFunc("/health", handleHealth).Methods("GET")

	// Password reset via backup code
	r.HandleFunc("/send-backup-code", handlers.SendBackupCode).Methods("POST")
	r.HandleFunc("/verify-backup-code", handlers.VerifyBackupCode).Methods("POST")
	r.HandleFunc("/update-password", handlers.UpdatePassword).Methods("POST")
	r.HandleFunc("/update-verification-attempts", handlers.UpdateVerificationAttempts).Methods("POST")
	r.HandleFunc("/check-username-email", handlers.CheckUsernameEmail).Methods("GET")

	// Form schema and read-only viewer endpoints
	r.HandleFunc("/catalog/energy-sources", handlers.GetEnergySources).Methods("GET")
	r.HandleFunc("/photos/{name}", handlers.GetPhotoByName).Methods("GET")
	// Legacy path kept for older viewer clients.
	r.HandleFunc("/photo_by_name/{name}", handlers.GetPhotoByName).Methods("GET")
	r.HandleFunc("/photo/{hash}", handlers.GetPhotoByHash).Methods("GET")
	r.HandleFunc("/locations_summary", handlers.GetLocationsSummary).Methods("GET")

	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))),
	)

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/profile", handleProfile).Methods("GET")
	api.HandleFunc("/change-password", handlers.ChangePassword).Methods("POST")

	registerReportRoutes(api)
	registerFileRoutes(api)

	return r
}

func registerReportRoutes(api *mux.Router) {
	api.HandleFunc("/reports", handlers.ListReports).Methods("GET")
	api.HandleFunc("/reports/export", handlers.ExportReportsToExcel).Methods("GET")
	api.HandleFunc("/reports/upload", handlers.UploadReport).Methods("POST")
	api.HandleFunc("/reports/{name}/json", handlers.GetReportJSON).Methods("GET")
	api.HandleFunc("/reports/{name}/download", handlers.DownloadDocument).Methods("GET")
	api.HandleFunc("/reports/{name}/generate", handlers.GeneratePDF).Methods("POST")
	api.HandleFunc("/reports/{name}/pdf", handlers.FetchPDF).Methods("GET")
	api.HandleFunc("/reports/{name}/rename", handlers.RenameReport).Methods("PUT")
	api.HandleFunc("/reports/{name}", handlers.DeleteReport).Methods("DELETE")
	api.HandleFunc("/renderer/health", handlers.RendererHealth).Methods("GET")
}

func registerFileRoutes(api *mux.Router) {
	api.HandleFunc("/files/upload", handlers.UploadFileHandler).Methods("POST")
}

// handleProfile returns the authenticated user's profile
func handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"email":    claims.Email,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
