package memory

import (
	"time"

	"github.com/engramdb/engram/internal/logger"
)

// Options configures a memory system.
type Options struct {
	// Root is the directory holding record files, highlights,
	// transactions, and indexes.
	Root string

	// DrainInterval is the background indexer cadence; zero means the
	// default.
	DrainInterval time.Duration

	// Catalog enables the SQLite metadata mirror under indexes/.
	Catalog bool
}

// System is the single handle owning every component of the store. It
// is constructed once at startup and passed to callers explicitly; there
// is no package-level singleton.
type System struct {
	opts Options

	txlog   *TransactionLog
	catalog *Catalog
	store   *Store
	indexes *IndexManager
	indexer *BackgroundIndexer
	queries *QueryEngine
	maint   *Maintenance
}

// Open builds the full component graph under opts.Root, warms the cache
// from disk, rebuilds the indices, and starts the background indexer.
func Open(opts Options) (*System, error) {
	txlog, err := OpenTransactionLog(opts.Root)
	if err != nil {
		return nil, err
	}

	var catalog *Catalog
	if opts.Catalog {
		catalog, err = OpenCatalog(opts.Root)
		if err != nil {
			// Degrade to file-only operation; the catalog is advisory.
			logger.Warn("catalog unavailable, continuing without it: %v", err)
			catalog = nil
		}
	}

	store, err := NewStore(opts.Root, txlog, catalog)
	if err != nil {
		txlog.Close()
		if catalog != nil {
			catalog.Close()
		}
		return nil, err
	}

	if _, err := store.LoadAll(); err != nil {
		txlog.Close()
		if catalog != nil {
			catalog.Close()
		}
		return nil, err
	}

	indexes := NewIndexManager(store)
	indexes.RebuildAll()

	indexer := NewBackgroundIndexer(store, indexes, opts.DrainInterval)
	store.SetNotify(indexer.Enqueue)
	indexer.Start()

	sys := &System{
		opts:    opts,
		txlog:   txlog,
		catalog: catalog,
		store:   store,
		indexes: indexes,
		indexer: indexer,
		queries: NewQueryEngine(store, indexes),
		maint:   NewMaintenance(store, indexes),
	}
	return sys, nil
}

// Close stops the background workers, waits for detached writes, and
// releases every resource.
func (s *System) Close() error {
	s.indexer.Stop()
	s.store.Flush()
	s.maint.WaitForRefresh()

	var firstErr error
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.txlog.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Save persists a new memory and schedules a statistics refresh.
func (s *System) Save(content string, tags []string, context string) (string, error) {
	id, err := s.store.Save(content, tags, context)
	if err != nil {
		return "", err
	}
	s.maint.RefreshStatisticsAsync()
	return id, nil
}

// Retrieve runs a query through the engine.
func (s *System) Retrieve(q Query) ([]*Memory, error) {
	return s.queries.Retrieve(q)
}

// RetrieveRelevant runs a capped text-only query.
func (s *System) RetrieveRelevant(text string, maxResults int) ([]*Memory, error) {
	return s.queries.RetrieveRelevant(text, maxResults)
}

// Store exposes the record store.
func (s *System) Store() *Store { return s.store }

// Indexes exposes the index manager.
func (s *System) Indexes() *IndexManager { return s.indexes }

// Indexer exposes the background indexer.
func (s *System) Indexer() *BackgroundIndexer { return s.indexer }

// Maintenance exposes the consistency checker and stats aggregator.
func (s *System) Maintenance() *Maintenance { return s.maint }

// Catalog returns the metadata catalog, or an error when disabled.
func (s *System) Catalog() (*Catalog, error) {
	if s.catalog == nil {
		return nil, NewStoreError(KindQuery, "Catalog", ErrCatalogDisabled)
	}
	return s.catalog, nil
}
