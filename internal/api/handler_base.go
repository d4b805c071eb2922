// File: backend/internal/api/handler_base.go
package api

import (
	"context"

	"github.com/phishscan/phishscan/backend/internal/analyzer"
	"github.com/phishscan/phishscan/backend/internal/config"
	"github.com/phishscan/phishscan/backend/internal/scanstore"
)

// Analyzer is the engine capability the handlers depend on.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) *analyzer.Report
}

// APIHandler holds shared dependencies for API handlers.
type APIHandler struct {
	Config *config.AppConfig
	Engine Analyzer
	Store  *scanstore.Store
}

// NewAPIHandler creates a new APIHandler with dependencies.
func NewAPIHandler(cfg *config.AppConfig, engine Analyzer, store *scanstore.Store) *APIHandler {
	return &APIHandler{
		Config: cfg,
		Engine: engine,
		Store:  store,
	}
}
