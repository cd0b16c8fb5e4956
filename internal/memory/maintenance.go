package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/engramdb/engram/internal/logger"
)

// ConsistencyFinding describes one divergence between cache, disk, and
// stored hashes.
type ConsistencyFinding struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

// ConsistencyReport is the complete result of a verification pass.
// Every finding is collected so operators see the full scope of
// corruption instead of the first error.
type ConsistencyReport struct {
	CheckTime   time.Time            `json:"check_time"`
	TotalCached int                  `json:"total_cached"`
	TotalFiles  int                  `json:"total_files"`
	Findings    []ConsistencyFinding `json:"findings,omitempty"`
}

// IsConsistent reports whether the pass found no divergence.
func (r *ConsistencyReport) IsConsistent() bool {
	return len(r.Findings) == 0
}

// Maintenance runs periodic store upkeep: disk/cache parity checks,
// hash re-verification, and statistics aggregation.
type Maintenance struct {
	store   *Store
	indexes *IndexManager

	statsMu sync.RWMutex
	stats   *Stats

	refreshing sync.WaitGroup
}

// NewMaintenance creates a maintenance runner for the store.
func NewMaintenance(store *Store, indexes *IndexManager) *Maintenance {
	return &Maintenance{store: store, indexes: indexes}
}

// VerifyConsistency confirms that every cached record has a matching,
// hash-valid file on disk and that every record file has a cached
// counterpart.
func (mt *Maintenance) VerifyConsistency() (*ConsistencyReport, error) {
	report := &ConsistencyReport{CheckTime: time.Now().UTC()}

	cached := make(map[string]struct{})
	mt.store.forEach(func(m *Memory) {
		cached[m.ID] = struct{}{}
	})
	report.TotalCached = len(cached)

	// Cache -> disk direction.
	for id := range cached {
		path := mt.store.RecordPath(id)
		if _, err := os.Stat(path); err != nil {
			report.Findings = append(report.Findings, ConsistencyFinding{
				ID:      id,
				Path:    path,
				Problem: ErrMissingFile.Error(),
			})
			continue
		}
		if _, err := readRecord(path); err != nil {
			report.Findings = append(report.Findings, ConsistencyFinding{
				ID:      id,
				Path:    path,
				Problem: fmt.Sprintf("record failed verification: %v", err),
			})
		}
	}

	// Disk -> cache direction.
	entries, err := os.ReadDir(mt.store.Root())
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "VerifyConsistency", mt.store.Root(), err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		report.TotalFiles++
		id := strings.TrimSuffix(entry.Name(), ".json")
		if _, ok := cached[id]; !ok {
			report.Findings = append(report.Findings, ConsistencyFinding{
				ID:      id,
				Path:    filepath.Join(mt.store.Root(), entry.Name()),
				Problem: ErrUntrackedFile.Error(),
			})
		}
	}

	return report, nil
}

// UpdateStatistics recomputes the aggregate stats from a full cache
// scan and publishes the new snapshot.
func (mt *Maintenance) UpdateStatistics() *Stats {
	stats := &Stats{
		ByTag:         make(map[string]int),
		ByImportance:  make(map[string]int),
		ByContentType: make(map[string]int),
		ComputedAt:    time.Now().UTC(),
	}

	totalImportance := 0
	mt.store.forEach(func(m *Memory) {
		stats.TotalMemories++
		totalImportance += m.Importance
		stats.TotalSizeBytes += int64(len(m.Content))
		stats.ByImportance[importanceBucket(m.Importance)]++
		stats.ByContentType[m.ContentType]++
		for _, tag := range m.Tags {
			stats.ByTag[strings.ToLower(tag)]++
		}
	})

	if stats.TotalMemories > 0 {
		stats.AverageImportance = float64(totalImportance) / float64(stats.TotalMemories)
	}
	stats.TotalHighlights = mt.countHighlights()

	mt.statsMu.Lock()
	mt.stats = stats
	mt.statsMu.Unlock()

	return stats
}

// RefreshStatisticsAsync recomputes stats in the background. Failures
// never reach the caller; use WaitForRefresh in tests.
func (mt *Maintenance) RefreshStatisticsAsync() {
	mt.refreshing.Add(1)
	go func() {
		defer mt.refreshing.Done()
		mt.UpdateStatistics()
	}()
}

// WaitForRefresh blocks until all background stat refreshes finish.
func (mt *Maintenance) WaitForRefresh() {
	mt.refreshing.Wait()
}

// Stats returns the last published snapshot, computing one on first use.
func (mt *Maintenance) Stats() *Stats {
	mt.statsMu.RLock()
	snapshot := mt.stats
	mt.statsMu.RUnlock()

	if snapshot == nil {
		return mt.UpdateStatistics()
	}
	return snapshot
}

// countHighlights counts record files in the highlights area.
func (mt *Maintenance) countHighlights() int {
	entries, err := os.ReadDir(filepath.Join(mt.store.Root(), "highlights"))
	if err != nil {
		logger.Warn("highlight scan failed: %v", err)
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count
}

// importanceBucket maps a score to its decile label, e.g. 41-50.
func importanceBucket(score int) string {
	if score < 1 {
		score = 1
	}
	if score > 100 {
		score = 100
	}
	lo := ((score-1)/10)*10 + 1
	return fmt.Sprintf("%d-%d", lo, lo+9)
}
