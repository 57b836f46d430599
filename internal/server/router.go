package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(docs *DocumentHandler, presets *PresetHandler) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"paperflow"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Document routes
	api.HandleFunc("/documents", docs.UploadDocuments).Methods("POST")
	api.HandleFunc("/documents", docs.ListDocuments).Methods("GET")
	api.HandleFunc("/documents/search", docs.SearchDocuments).Methods("GET")
	api.HandleFunc("/documents/export", docs.ExportDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", docs.GetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}/process", docs.ProcessDocument).Methods("POST")

	// Preset routes
	api.HandleFunc("/presets", presets.CreatePreset).Methods("POST")
	api.HandleFunc("/presets", presets.ListPresets).Methods("GET")
	api.HandleFunc("/presets/{id}", presets.GetPreset).Methods("GET")
	api.HandleFunc("/presets/{id}", presets.DeletePreset).Methods("DELETE")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Owner-ID",
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
