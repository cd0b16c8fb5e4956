package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestStore builds a store over a fresh temp root without a catalog.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	root, err := os.MkdirTemp("", "engram-store-test")
	if err != nil {
		t.Fatal(err)
	}

	txlog, err := OpenTransactionLog(root)
	if err != nil {
		os.RemoveAll(root)
		t.Fatalf("Failed to open transaction log: %v", err)
	}

	store, err := NewStore(root, txlog, nil)
	if err != nil {
		txlog.Close()
		os.RemoveAll(root)
		t.Fatalf("Failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Flush()
		txlog.Close()
		os.RemoveAll(root)
	})
	return store
}

func TestNewStore_CreatesLayout(t *testing.T) {
	store := newTestStore(t)

	for _, dir := range []string{"highlights", "indexes", "transactions"} {
		if _, err := os.Stat(filepath.Join(store.Root(), dir)); err != nil {
			t.Errorf("Expected %s directory: %v", dir, err)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save("remember the milk", []string{"groceries"}, "shopping")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if m.Content != "remember the milk" {
		t.Errorf("Content mismatch: %s", m.Content)
	}
	if !m.HasTag("groceries") {
		t.Errorf("Missing tag, got %v", m.Tags)
	}
	if m.Context != "shopping" {
		t.Errorf("Context mismatch: %s", m.Context)
	}
	if m.ContentHash != HashContent([]byte(m.Content)) {
		t.Error("Stored hash should match content")
	}
	if m.Version != 1 {
		t.Errorf("Expected version 1, got %d", m.Version)
	}
	if m.CreationMethod != CreationManual {
		t.Errorf("Expected manual creation, got %s", m.CreationMethod)
	}
	if m.ContentType != ContentTypeText {
		t.Errorf("Expected text type, got %s", m.ContentType)
	}

	// The record file must exist and contain the same record.
	data, err := os.ReadFile(store.RecordPath(id))
	if err != nil {
		t.Fatalf("Record file missing: %v", err)
	}
	var onDisk Memory
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("Record file should be valid JSON: %v", err)
	}
	if onDisk.ID != id || onDisk.Content != m.Content {
		t.Error("On-disk record should match the cached one")
	}
}

func TestSaveAutomatic(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveAutomatic("captured in passing", nil, "")
	if err != nil {
		t.Fatalf("SaveAutomatic failed: %v", err)
	}

	m, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if m.CreationMethod != CreationAutomatic {
		t.Errorf("Expected automatic creation, got %s", m.CreationMethod)
	}
}

func TestSave_RejectsEmptyContent(t *testing.T) {
	store := newTestStore(t)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := store.Save(content, nil, "")
		if err == nil {
			t.Errorf("Save(%q) should fail", content)
			continue
		}
		if !errors.Is(err, ErrEmptyContent) {
			t.Errorf("Expected ErrEmptyContent, got %v", err)
		}
	}
}

func TestSave_HighlightMirror(t *testing.T) {
	store := newTestStore(t)

	// architecture + critical tags compress to 94, above the threshold.
	id, err := store.Save("the gateway terminates TLS", []string{"architecture", "critical"}, "")
	if err != nil {
		t.Fatal(err)
	}

	m, _ := store.Get(id)
	if m.Importance < HighlightThreshold {
		t.Fatalf("Test record should clear the threshold, scored %d", m.Importance)
	}
	if _, err := os.Stat(store.HighlightPath(id)); err != nil {
		t.Errorf("High-importance record should be mirrored: %v", err)
	}

	// A mundane record stays out of highlights.
	lowID, err := store.Save("bought stamps", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.HighlightPath(lowID)); !os.IsNotExist(err) {
		t.Error("Low-importance record should not be mirrored")
	}
}

func TestSave_JournalsOperation(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save("journaled", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(store.txlog.Path())
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "BEGIN ") || !strings.Contains(text, "COMMIT") {
		t.Errorf("Journal should hold BEGIN and COMMIT markers: %q", text)
	}
	if !strings.Contains(text, id) {
		t.Error("Journal BEGIN should name the record id")
	}
}

func TestLoadAll(t *testing.T) {
	store := newTestStore(t)

	var ids []string
	for _, content := range []string{"first", "second", "third"} {
		id, err := store.Save(content, nil, "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	// A fresh store over the same root rebuilds the cache from disk.
	txlog, err := OpenTransactionLog(store.Root())
	if err != nil {
		t.Fatal(err)
	}
	defer txlog.Close()

	reloaded, err := NewStore(store.Root(), txlog, nil)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := reloaded.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(loaded))
	}
	for _, id := range ids {
		if _, err := reloaded.Get(id); err != nil {
			t.Errorf("Record %s should survive a reload: %v", id, err)
		}
	}
}

func TestLoadAll_SkipsBadRecords(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("good record", nil, ""); err != nil {
		t.Fatal(err)
	}

	// Unparseable file.
	garbage := filepath.Join(store.Root(), "garbage.json")
	if err := os.WriteFile(garbage, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	// Valid JSON whose hash no longer matches its content.
	tampered := &Memory{
		ID:          "tampered",
		Content:     "altered content",
		ContentHash: HashContent([]byte("original content")),
		Version:     1,
	}
	data, _ := json.Marshal(tampered)
	if err := os.WriteFile(filepath.Join(store.Root(), "tampered.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	txlog, err := OpenTransactionLog(store.Root())
	if err != nil {
		t.Fatal(err)
	}
	defer txlog.Close()

	reloaded, err := NewStore(store.Root(), txlog, nil)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := reloaded.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll should survive bad records: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("Expected only the good record, got %d", len(loaded))
	}
}

func TestRecordAccess(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save("frequently used", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	before, _ := store.Get(id)

	if err := store.RecordAccess(id); err != nil {
		t.Fatalf("RecordAccess failed: %v", err)
	}
	store.Flush()

	after, _ := store.Get(id)
	if after.AccessCount != 1 {
		t.Errorf("Expected access count 1, got %d", after.AccessCount)
	}
	if after.LastAccessedAt.Before(before.LastAccessedAt) {
		t.Error("Last-accessed timestamp should advance")
	}

	// The bump must reach the record file too.
	m, err := readRecord(store.RecordPath(id))
	if err != nil {
		t.Fatal(err)
	}
	if m.AccessCount != 1 {
		t.Errorf("Persisted access count should be 1, got %d", m.AccessCount)
	}
}

func TestRecordAccess_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordAccess("nope")
	if !IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save("immutable view", []string{"one"}, "")
	if err != nil {
		t.Fatal(err)
	}

	m, _ := store.Get(id)
	m.Tags[0] = "mutated"
	m.Content = "mutated"

	fresh, _ := store.Get(id)
	if fresh.Tags[0] != "one" || fresh.Content != "immutable view" {
		t.Error("Mutating a returned record should not affect the cache")
	}
}

func TestConcurrentSaves(t *testing.T) {
	store := newTestStore(t)

	const savers = 20
	ids := make([]string, savers)
	var wg sync.WaitGroup
	for i := 0; i < savers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id, err := store.Save("concurrent record", nil, "")
			if err != nil {
				t.Errorf("Save failed: %v", err)
				return
			}
			ids[n] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			t.Errorf("Duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != savers {
		t.Errorf("Expected %d distinct ids, got %d", savers, len(seen))
	}
	if store.Len() != savers {
		t.Errorf("Expected %d cached records, got %d", savers, store.Len())
	}
}

func TestSave_RustSnippetScenario(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save("```rust\nfn x(){}\n```", []string{"code", "architecture"}, "")
	if err != nil {
		t.Fatal(err)
	}

	m, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}

	// The fence dominates the architecture tag for type inference.
	if m.ContentType != ContentTypeCode {
		t.Errorf("Expected code type, got %s", m.ContentType)
	}
	// Tag and fence bonuses stack well past the base score.
	if m.Importance < 90 {
		t.Errorf("Expected a high score, got %d", m.Importance)
	}
	if got := ExtractCodeBlocks(m.Content); got != "fn x(){}" {
		t.Errorf("Expected the fenced block verbatim, got %q", got)
	}
}

func TestNewID(t *testing.T) {
	now := time.Now().UTC()
	id1 := newID(now)
	id2 := newID(now)

	// The random suffix keeps same-microsecond ids distinct.
	if id1 == id2 {
		t.Error("Ids created at the same instant should still differ")
	}

	parts := strings.SplitN(id1, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("Id should be timestamp_suffix, got %s", id1)
	}
	if parts[0] != fmt.Sprintf("%d", now.UnixMicro()) {
		t.Errorf("Id prefix should be the creation microsecond, got %s", parts[0])
	}
	if len(parts[1]) != 8 {
		t.Errorf("Id suffix should be 8 chars, got %q", parts[1])
	}
}
