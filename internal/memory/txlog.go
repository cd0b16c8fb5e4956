package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Operation is the journaled description of a mutation.
type Operation struct {
	Op         string `json:"op"` // create, update, delete
	ID         string `json:"id"`
	Importance int    `json:"importance,omitempty"`
	SizeBytes  int    `json:"size_bytes,omitempty"`
}

// TransactionLog is an append-only journal of BEGIN/COMMIT markers.
// One log file exists per process lifetime, named by process start time.
// It is an audit trail: no replay happens on startup, crash consistency
// rests on the single-file record writes themselves.
type TransactionLog struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenTransactionLog creates the transactions directory and opens the
// per-process log file.
func OpenTransactionLog(root string) (*TransactionLog, error) {
	dir := filepath.Join(root, "transactions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "OpenTransactionLog", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("txn_%d.log", time.Now().UTC().UnixMicro()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "OpenTransactionLog", path, err)
	}

	return &TransactionLog{file: f, path: path}, nil
}

// Path returns the log file location.
func (t *TransactionLog) Path() string {
	return t.path
}

// Begin journals the start of a mutation. The line is flushed to disk
// before Begin returns so a crash mid-write leaves an unmatched BEGIN.
func (t *TransactionLog) Begin(op Operation) error {
	payload, err := json.Marshal(op)
	if err != nil {
		return NewStoreError(KindSerialization, "Begin", err)
	}
	return t.writeLine("BEGIN " + string(payload))
}

// Commit journals the successful end of the current mutation.
func (t *TransactionLog) Commit() error {
	return t.writeLine("COMMIT")
}

// writeLine appends one line and syncs. The mutex serializes concurrent
// writers so lines never interleave.
func (t *TransactionLog) writeLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return NewStoreError(KindTransaction, "writeLine", ErrStoreClosed)
	}
	if _, err := t.file.WriteString(line + "\n"); err != nil {
		return NewStoreErrorWithPath(KindTransaction, "writeLine", t.path, err)
	}
	if err := t.file.Sync(); err != nil {
		return NewStoreErrorWithPath(KindTransaction, "writeLine", t.path, err)
	}
	return nil
}

// Close closes the underlying log file.
func (t *TransactionLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
