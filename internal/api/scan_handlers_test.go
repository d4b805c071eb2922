// File: backend/internal/api/scan_handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phishscan/phishscan/backend/internal/analyzer"
	"github.com/phishscan/phishscan/backend/internal/config"
	"github.com/phishscan/phishscan/backend/internal/scanstore"
)

const testAPIKey = "test-key"

type stubEngine struct {
	report *analyzer.Report
}

func (s *stubEngine) Analyze(ctx context.Context, rawURL string) *analyzer.Report {
	r := *s.report
	r.InputURL = rawURL
	return &r
}

func newTestRouter(report *analyzer.Report) (http.Handler, *scanstore.Store) {
	cfg := config.DefaultConfig()
	cfg.Server.APIKey = testAPIKey
	cfg.Server.RateLimitRPS = 1000
	cfg.Server.RateLimitBurst = 1000
	store := scanstore.New("")
	return NewRouter(cfg, &stubEngine{report: report}, store), store
}

func phishingReport() *analyzer.Report {
	return &analyzer.Report{
		Verdict:   analyzer.VerdictPhishing,
		RiskScore: 42,
		Findings: []analyzer.Finding{
			{Severity: analyzer.SeverityHigh, Description: "Hostname does not resolve", Weight: 6},
		},
	}
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestScanHandler(t *testing.T) {
	router, store := newTestRouter(phishingReport())

	body, _ := json.Marshal(ScanRequest{URL: "http://bad.example.net/login-secure"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/scan", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != scanstore.StatusDangerous {
		t.Errorf("Status = %q, want %q", resp.Status, scanstore.StatusDangerous)
	}
	if resp.RiskScore != 42 || resp.Verdict != analyzer.VerdictPhishing {
		t.Errorf("response = %+v", resp)
	}
	if resp.ScanID == "" {
		t.Errorf("missing scanId")
	}
	if len(store.List()) != 1 {
		t.Errorf("scan not recorded in history")
	}
}

func TestScanHandlerValidation(t *testing.T) {
	router, _ := newTestRouter(phishingReport())

	tests := []struct {
		name string
		body []byte
	}{
		{"missing url", []byte(`{}`)},
		{"blank url", []byte(`{"url": "   "}`)},
		{"malformed json", []byte(`{"url":`)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/scan", tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestScanHandlerRequiresAPIKey(t *testing.T) {
	router, _ := newTestRouter(phishingReport())

	body, _ := json.Marshal(ScanRequest{URL: "http://x.example.net"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong key = %d, want 401", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	router, store := newTestRouter(phishingReport())
	entry, err := store.Append("http://seeded.example.net", phishingReport())
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/scans", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listResp struct {
		Scans []scanstore.Entry `json:"scans"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listResp.Count != 1 || len(listResp.Scans) != 1 {
		t.Fatalf("list = %+v", listResp)
	}
	if listResp.Scans[0].Report != nil {
		t.Errorf("list should omit full reports")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/scans/"+entry.ID+"/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	var got scanstore.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.Report == nil || got.Report.RiskScore != 42 {
		t.Errorf("report entry = %+v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/scans/nope/report", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown scan status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/scans/"+entry.ID+"/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("download Content-Type = %q", ct)
	}
	text := rec.Body.String()
	if !bytes.Contains([]byte(text), []byte("http://seeded.example.net")) {
		t.Errorf("download report missing URL: %q", text)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/scans", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if len(store.List()) != 0 {
		t.Errorf("history not cleared")
	}
}

func TestStatsHandler(t *testing.T) {
	router, store := newTestRouter(phishingReport())
	store.Append("http://a.example.net", phishingReport())
	safe := &analyzer.Report{Verdict: analyzer.VerdictSafe}
	store.Append("http://b.example.net", safe)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats scanstore.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 2 || stats.Dangerous != 1 || stats.Safe != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPing(t *testing.T) {
	router, _ := newTestRouter(phishingReport())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ping status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode ping: %v", err)
	}
	if resp["message"] != "pong" {
		t.Errorf("ping message = %q", resp["message"])
	}
	if resp["service"] != "phishscan-api" {
		t.Errorf("ping service = %q, want phishscan-api", resp["service"])
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.APIKey = testAPIKey
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	store := scanstore.New("")
	router := NewRouter(cfg, &stubEngine{report: phishingReport()}, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}
