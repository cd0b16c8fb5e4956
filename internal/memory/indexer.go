package memory

import (
	"sync"
	"time"

	"github.com/engramdb/engram/internal/logger"
)

// DefaultDrainInterval is how often the background indexer wakes to
// drain the pending queue.
const DefaultDrainInterval = 100 * time.Millisecond

// BackgroundIndexer drains newly-saved ids into the index manager on a
// fixed cadence. Saves are therefore searchable by id immediately but
// reach the secondary indices only after the next drain; callers that
// need instant searchability use ForceDrain.
type BackgroundIndexer struct {
	store    *Store
	indexes  *IndexManager
	interval time.Duration

	queueMu sync.Mutex
	queue   []string

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewBackgroundIndexer creates an indexer worker. A non-positive
// interval falls back to the default drain cadence.
func NewBackgroundIndexer(store *Store, indexes *IndexManager, interval time.Duration) *BackgroundIndexer {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	return &BackgroundIndexer{
		store:    store,
		indexes:  indexes,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Enqueue schedules a record id for indexing on the next drain cycle.
func (b *BackgroundIndexer) Enqueue(id string) {
	b.queueMu.Lock()
	b.queue = append(b.queue, id)
	b.queueMu.Unlock()
}

// Pending returns the number of ids waiting to be indexed.
func (b *BackgroundIndexer) Pending() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

// Start launches the drain loop. Call Stop to terminate.
func (b *BackgroundIndexer) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run()
}

// Stop terminates the drain loop. Any ids still queued are drained
// before Stop returns, so shutdown never strands an unindexed record.
func (b *BackgroundIndexer) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stopCh)
	b.mu.Unlock()

	b.wg.Wait()
	b.drain()
}

// ForceDrain synchronously indexes everything queued right now.
func (b *BackgroundIndexer) ForceDrain() {
	b.drain()
}

func (b *BackgroundIndexer) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.drain()
		}
	}
}

// drain atomically takes the whole queue and indexes each id from the
// cache. Ids that have vanished from the cache are logged and dropped.
func (b *BackgroundIndexer) drain() {
	b.queueMu.Lock()
	batch := b.queue
	b.queue = nil
	b.queueMu.Unlock()

	for _, id := range batch {
		m, ok := b.store.get(id)
		if !ok {
			logger.Warn("indexer: queued id %s no longer cached", id)
			continue
		}
		b.indexes.Index(m)
	}
}
