package memory

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CatalogEntry is the content-free metadata row kept per record.
type CatalogEntry struct {
	ID             string    `json:"id"`
	ContentType    string    `json:"content_type"`
	Importance     int       `json:"importance"`
	AccessCount    int       `json:"access_count"`
	Tags           []string  `json:"tags,omitempty"`
	ContentHash    string    `json:"content_hash,omitempty"`
	SizeBytes      int       `json:"size_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Catalog is a SQLite metadata mirror under the reserved indexes/ area.
// It lets listing and stats commands avoid touching record payloads and
// gives the consistency checker a third parity source. The store works
// without it; every catalog failure is advisory.
type Catalog struct {
	db   *sql.DB
	path string
}

// OpenCatalog opens (creating if needed) the catalog database.
func OpenCatalog(root string) (*Catalog, error) {
	dir := filepath.Join(root, "indexes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "OpenCatalog", dir, err)
	}

	path := filepath.Join(dir, "catalog.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "OpenCatalog", path, err)
	}

	c := &Catalog{db: db, path: path}
	if err := c.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS memory_catalog (
			id TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			importance INTEGER NOT NULL,
			access_count INTEGER DEFAULT 0,
			tags TEXT,
			content_hash TEXT,
			size_bytes INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_accessed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_importance ON memory_catalog(importance)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_content_type ON memory_catalog(content_type)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_created_at ON memory_catalog(created_at)`,
	}

	for _, query := range queries {
		if _, err := c.db.Exec(query); err != nil {
			return NewStoreErrorWithPath(KindIo, "initTables", c.path, err)
		}
	}
	return nil
}

// Insert mirrors a newly saved record's metadata.
func (c *Catalog) Insert(m *Memory) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO memory_catalog
			(id, content_type, importance, access_count, tags, content_hash, size_bytes, created_at, last_accessed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ContentType, m.Importance, m.AccessCount,
		strings.Join(m.Tags, ","), m.ContentHash, len(m.Content),
		m.CreatedAt, m.LastAccessedAt,
	)
	if err != nil {
		return NewStoreErrorWithPath(KindIo, "Insert", c.path, err)
	}
	return nil
}

// RecordAccess mirrors an access-stat bump.
func (c *Catalog) RecordAccess(id string, accessCount int, at time.Time) error {
	res, err := c.db.Exec(
		`UPDATE memory_catalog SET access_count = ?, last_accessed_at = ? WHERE id = ?`,
		accessCount, at, id,
	)
	if err != nil {
		return NewStoreErrorWithPath(KindIo, "RecordAccess", c.path, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return NewStoreErrorWithPath(KindIo, "RecordAccess", c.path, err)
	}
	if rows == 0 {
		return NewStoreError(KindConsistency, "RecordAccess", ErrNotFound)
	}
	return nil
}

// List returns catalog entries ordered newest-first.
func (c *Catalog) List(limit int) ([]*CatalogEntry, error) {
	query := `SELECT id, content_type, importance, access_count, tags, content_hash, size_bytes, created_at, last_accessed_at
		FROM memory_catalog ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "List", c.path, err)
	}
	defer rows.Close()

	var entries []*CatalogEntry
	for rows.Next() {
		entry := &CatalogEntry{}
		var tags string
		if err := rows.Scan(
			&entry.ID, &entry.ContentType, &entry.Importance, &entry.AccessCount,
			&tags, &entry.ContentHash, &entry.SizeBytes, &entry.CreatedAt, &entry.LastAccessedAt,
		); err != nil {
			continue
		}
		if tags != "" {
			entry.Tags = strings.Split(tags, ",")
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// IDs returns every cataloged record id.
func (c *Catalog) IDs() (map[string]struct{}, error) {
	rows, err := c.db.Query(`SELECT id FROM memory_catalog`)
	if err != nil {
		return nil, NewStoreErrorWithPath(KindIo, "IDs", c.path, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Count returns the number of cataloged records.
func (c *Catalog) Count() (int, error) {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM memory_catalog`).Scan(&count); err != nil {
		return 0, NewStoreErrorWithPath(KindIo, "Count", c.path, err)
	}
	return count, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
