// File: backend/internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/phishscan/phishscan/backend/internal/config"
	"github.com/phishscan/phishscan/backend/internal/scanstore"
)

func NewRouter(cfg *config.AppConfig, engine Analyzer, store *scanstore.Store) *mux.Router {
	router := mux.NewRouter()
	apiHandler := NewAPIHandler(cfg, engine, store)

	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	router.HandleFunc("/ping", apiHandler.PingHandler).Methods(http.MethodGet, http.MethodOptions)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(APIKeyAuthMiddleware(cfg.Server.APIKey))
	apiV1.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	// Scanning
	apiV1.HandleFunc("/scan", apiHandler.ScanHandler).Methods(http.MethodPost, http.MethodOptions)

	// History
	apiV1.HandleFunc("/scans", apiHandler.ListScansHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/scans", apiHandler.ClearScansHandler).Methods(http.MethodDelete, http.MethodOptions)
	apiV1.HandleFunc("/scans/{scanId}/report", apiHandler.GetScanReportHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/scans/{scanId}/download", apiHandler.DownloadReportHandler).Methods(http.MethodGet, http.MethodOptions)

	// Stats
	apiV1.HandleFunc("/stats", apiHandler.StatsHandler).Methods(http.MethodGet, http.MethodOptions)

	return router
}
