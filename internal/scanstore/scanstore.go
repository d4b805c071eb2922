// Package scanstore keeps the append-only scan history. Entries live in
// memory behind an RWMutex and are mirrored to a JSON file so history
// survives restarts.
package scanstore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phishscan/phishscan/backend/internal/analyzer"
)

// Scan status buckets shown in history and stats.
const (
	StatusSafe       = "safe"
	StatusSuspicious = "suspicious"
	StatusDangerous  = "dangerous"
)

// StatusForVerdict maps an analysis verdict onto a history status bucket.
func StatusForVerdict(verdict string) string {
	switch verdict {
	case analyzer.VerdictPhishing:
		return StatusDangerous
	case analyzer.VerdictSuspicious:
		return StatusSuspicious
	default:
		return StatusSafe
	}
}

// Entry is one recorded scan.
type Entry struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Status    string           `json:"status"`
	RiskScore int              `json:"riskScore"`
	Verdict   string           `json:"verdict"`
	CreatedAt time.Time        `json:"createdAt"`
	Report    *analyzer.Report `json:"report,omitempty"`
}

// Stats are the running totals over the whole history.
type Stats struct {
	Total      int `json:"total"`
	Safe       int `json:"safe"`
	Suspicious int `json:"suspicious"`
	Dangerous  int `json:"dangerous"`
}

// Store is safe for concurrent use. A Store with an empty file path keeps
// history in memory only.
type Store struct {
	mu       sync.RWMutex
	filePath string
	entries  []Entry
}

// New creates a store backed by filePath, loading any existing history. A
// corrupt history file is logged and replaced on the next append rather than
// failing startup.
func New(filePath string) *Store {
	s := &Store{filePath: filePath}
	if filePath == "" {
		return s
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("ScanStore: could not read history file '%s': %v", filePath, err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		log.Printf("ScanStore: history file '%s' is corrupt, starting empty: %v", filePath, err)
		s.entries = nil
	}
	return s
}

// Append records a completed scan, filling in ID and timestamp.
func (s *Store) Append(url string, report *analyzer.Report) (Entry, error) {
	entry := Entry{
		ID:        uuid.New().String(),
		URL:       url,
		Status:    StatusForVerdict(report.Verdict),
		RiskScore: report.RiskScore,
		Verdict:   report.Verdict,
		CreatedAt: time.Now().UTC(),
		Report:    report,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if err := s.persistLocked(); err != nil {
		return entry, err
	}
	return entry, nil
}

// List returns the history, newest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Get looks up one scan by ID.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// Clear erases the history, in memory and on disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return s.persistLocked()
}

// Stats tallies the history by status bucket.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.entries)}
	for _, entry := range s.entries {
		switch entry.Status {
		case StatusDangerous:
			stats.Dangerous++
		case StatusSuspicious:
			stats.Suspicious++
		default:
			stats.Safe++
		}
	}
	return stats
}

func (s *Store) persistLocked() error {
	if s.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scan history: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file '%s': %w", s.filePath, err)
	}
	return nil
}
