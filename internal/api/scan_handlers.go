// File: backend/internal/api/scan_handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// scanRequestTimeout bounds one whole analysis, abandoning any collector
// still in flight when it fires.
const scanRequestTimeout = 30 * time.Second

const maxScanRequestBodyBytes = 64 * 1024

// ScanRequest is the POST /scan payload.
type ScanRequest struct {
	URL string `json:"url"`
}

// ScanResponse pairs the stored history entry ID with the full report.
type ScanResponse struct {
	ScanID    string      `json:"scanId"`
	URL       string      `json:"url"`
	Status    string      `json:"status"`
	RiskScore int         `json:"riskScore"`
	Verdict   string      `json:"verdict"`
	Report    interface{} `json:"report"`
}

// ScanHandler analyzes one URL and appends the result to the history.
func (h *APIHandler) ScanHandler(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScanRequestBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "Field 'url' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scanRequestTimeout)
	defer cancel()

	report := h.Engine.Analyze(ctx, req.URL)

	entry, err := h.Store.Append(req.URL, report)
	if err != nil {
		// The caller still gets their report; only persistence degraded.
		log.Printf("ScanHandler: failed to persist scan of %s: %v", req.URL, err)
	}

	respondWithJSON(w, http.StatusOK, ScanResponse{
		ScanID:    entry.ID,
		URL:       req.URL,
		Status:    entry.Status,
		RiskScore: report.RiskScore,
		Verdict:   report.Verdict,
		Report:    report,
	})
}

// ListScansHandler returns the scan history, newest first, without the full
// per-scan reports.
func (h *APIHandler) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	entries := h.Store.List()
	for i := range entries {
		entries[i].Report = nil
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"scans": entries,
		"count": len(entries),
	})
}

// ClearScansHandler erases the scan history.
func (h *APIHandler) ClearScansHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Clear(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to clear scan history: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Scan history cleared"})
}

// GetScanReportHandler returns the full stored report for one scan.
func (h *APIHandler) GetScanReportHandler(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["scanId"]
	entry, ok := h.Store.Get(scanID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Scan not found: "+scanID)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// DownloadReportHandler serves one scan as a plain-text attachment.
func (h *APIHandler) DownloadReportHandler(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["scanId"]
	entry, ok := h.Store.Get(scanID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Scan not found: "+scanID)
		return
	}

	var b strings.Builder
	b.WriteString("PhishScan Report\n")
	b.WriteString("=================\n")
	fmt.Fprintf(&b, "URL: %s\n", entry.URL)
	fmt.Fprintf(&b, "Status: %s\n", entry.Status)
	fmt.Fprintf(&b, "Verdict: %s\n", entry.Verdict)
	fmt.Fprintf(&b, "Risk score: %d\n", entry.RiskScore)
	fmt.Fprintf(&b, "Timestamp: %s\n", entry.CreatedAt.Format(time.RFC3339))
	if entry.Report != nil {
		fmt.Fprintf(&b, "\nFindings (%d):\n", len(entry.Report.Findings))
		for _, f := range entry.Report.Findings {
			fmt.Fprintf(&b, "- [%s] %s (weight %d)\n", f.Severity, f.Description, f.Weight)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=phishscan_report_%s.txt", entry.ID))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.String()))
}

// StatsHandler returns running totals over the history.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.Store.Stats())
}
