package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engramdb/engram/internal/logger"
)

// Store owns the on-disk record files and the in-memory record cache.
// All mutations are journaled through the transaction log before the
// record file is written.
type Store struct {
	root    string
	txlog   *TransactionLog
	catalog *Catalog // optional; nil when the catalog is disabled

	mu    sync.RWMutex
	cache map[string]*Memory

	// notify is called with the id of every newly saved record so the
	// background indexer can pick it up.
	notify func(id string)

	// pending tracks detached access-stat persists so Flush can wait
	// for them deterministically.
	pending sync.WaitGroup
}

// NewStore creates the on-disk layout under root and returns a store
// with an empty cache. Call LoadAll to warm it from disk.
func NewStore(root string, txlog *TransactionLog, catalog *Catalog) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, "highlights"), filepath.Join(root, "indexes")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, NewStoreErrorWithPath(KindIo, "NewStore", dir, err)
		}
	}

	return &Store{
		root:    root,
		txlog:   txlog,
		catalog: catalog,
		cache:   make(map[string]*Memory),
		notify:  func(string) {},
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// SetNotify registers the callback invoked with every newly saved id.
func (s *Store) SetNotify(fn func(id string)) {
	if fn != nil {
		s.notify = fn
	}
}

// Save persists a new memory and returns its id. The record is
// immediately retrievable by id; secondary indices catch up on the
// background indexer's next drain.
func (s *Store) Save(content string, tags []string, context string) (string, error) {
	return s.save(content, tags, context, CreationManual)
}

// SaveAutomatic persists a record captured without an explicit user
// request, marked with automatic provenance.
func (s *Store) SaveAutomatic(content string, tags []string, context string) (string, error) {
	return s.save(content, tags, context, CreationAutomatic)
}

func (s *Store) save(content string, tags []string, context, method string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", NewStoreError(KindValidation, "Save", ErrEmptyContent)
	}

	now := time.Now().UTC()
	m := &Memory{
		ID:             newID(now),
		CreatedAt:      now,
		LastAccessedAt: now,
		Content:        content,
		Importance:     ScoreImportance(content, tags),
		Tags:           append([]string(nil), tags...),
		Context:        context,
		ContentHash:    HashContent([]byte(content)),
		ContentType:    DetectContentType(content, tags),
		Version:        1,
		CreationMethod: method,
	}

	op := Operation{Op: "create", ID: m.ID, Importance: m.Importance, SizeBytes: len(content)}
	if err := s.txlog.Begin(op); err != nil {
		return "", err
	}

	if err := s.persist(m); err != nil {
		return "", err
	}

	if err := s.txlog.Commit(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[m.ID] = m
	s.mu.Unlock()

	if s.catalog != nil {
		if err := s.catalog.Insert(m); err != nil {
			logger.Warn("catalog insert failed for %s: %v", m.ID, err)
		}
	}

	s.notify(m.ID)
	return m.ID, nil
}

// Get returns the cached record with the given id.
func (s *Store) Get(id string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.cache[id]
	if !ok {
		return nil, NewStoreError(KindQuery, "Get", ErrNotFound)
	}
	return m.clone(), nil
}

// LoadAll reads every record file under the root into the cache and
// returns the loaded records. Records that fail to deserialize or whose
// hash does not verify are logged and skipped; the load itself succeeds.
func (s *Store) LoadAll() ([]*Memory, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "LoadAll", s.root, err)
	}

	var loaded []*Memory
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.root, entry.Name())
		m, err := readRecord(path)
		if err != nil {
			logger.Warn("skipping record %s: %v", path, err)
			continue
		}

		s.mu.Lock()
		s.cache[m.ID] = m
		s.mu.Unlock()
		loaded = append(loaded, m.clone())
	}

	return loaded, nil
}

// RecordAccess bumps the access statistics for a record and persists the
// update in the background. Persistence failures are logged, never
// surfaced: access stats are advisory.
func (s *Store) RecordAccess(id string) error {
	s.mu.Lock()
	m, ok := s.cache[id]
	if !ok {
		s.mu.Unlock()
		return NewStoreError(KindQuery, "RecordAccess", ErrNotFound)
	}
	m.RecordAccess()
	snapshot := m.clone()
	s.mu.Unlock()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.persist(snapshot); err != nil {
			logger.Warn("access-stat persist failed for %s: %v", id, err)
		}
		if s.catalog != nil {
			if err := s.catalog.RecordAccess(snapshot.ID, snapshot.AccessCount, snapshot.LastAccessedAt); err != nil {
				logger.Warn("catalog access update failed for %s: %v", id, err)
			}
		}
	}()

	return nil
}

// Flush blocks until all detached access-stat persists have completed.
func (s *Store) Flush() {
	s.pending.Wait()
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// IDs returns the ids of every cached record.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.cache))
	for id := range s.cache {
		ids = append(ids, id)
	}
	return ids
}

// RecordPath returns the on-disk location of a record file.
func (s *Store) RecordPath(id string) string {
	return filepath.Join(s.root, id+".json")
}

// HighlightPath returns the highlights-area location of a record file.
func (s *Store) HighlightPath(id string) string {
	return filepath.Join(s.root, "highlights", id+".json")
}

// persist writes the record file, mirroring high-importance records into
// the highlights area. Writes go through a temp file plus rename so a
// crash never leaves a half-written record.
func (s *Store) persist(m *Memory) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return NewStoreError(KindSerialization, "persist", err)
	}

	path := s.RecordPath(m.ID)
	if err := writeFileAtomic(path, data); err != nil {
		return NewStoreErrorWithPath(KindIo, "persist", path, err)
	}

	if m.Importance >= HighlightThreshold {
		hp := s.HighlightPath(m.ID)
		if err := writeFileAtomic(hp, data); err != nil {
			return NewStoreErrorWithPath(KindIo, "persist", hp, err)
		}
	}

	return nil
}

// readRecord loads and verifies a single record file.
func readRecord(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "readRecord", path, err)
	}

	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, NewStoreErrorWithPath(KindSerialization, "readRecord", path, err)
	}

	if err := VerifyContentHash(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// newID derives a unique, roughly time-ordered id from the creation
// timestamp at microsecond resolution. The random suffix keeps ids
// distinct even when saves land on the same microsecond.
func newID(now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMicro(), uuid.NewString()[:8])
}

// forEach runs fn over the live cache under the read lock. fn must not
// retain or mutate the record.
func (s *Store) forEach(fn func(m *Memory)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.cache {
		fn(m)
	}
}

// get returns the live cached record without cloning. Internal callers
// only; the caller must treat the record as read-only.
func (s *Store) get(id string) (*Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.cache[id]
	return m, ok
}
