package memory

import (
	"strings"
	"sync"
)

const (
	// minTokenLength is the shortest token the text index keeps.
	minTokenLength = 3

	// trigramSize is the sliding-window width of the fuzzy index.
	trigramSize = 3

	// minTrigramOverlap is how many query trigrams must hit a record
	// before the fuzzy fallback accepts it.
	minTrigramOverlap = 2
)

type idSet map[string]struct{}

func (s idSet) add(id string) { s[id] = struct{}{} }

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

// invertedIndex maps a discriminant (tag, token, type, trigram) to the
// ids carrying it. Each instance has its own lock so readers of one
// index never wait on writers of another.
type invertedIndex struct {
	mu      sync.RWMutex
	entries map[string]idSet
}

func newInvertedIndex() *invertedIndex {
	return &invertedIndex{entries: make(map[string]idSet)}
}

func (ix *invertedIndex) insert(key, id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.entries[key]
	if !ok {
		set = make(idSet)
		ix.entries[key] = set
	}
	set.add(id)
}

func (ix *invertedIndex) lookup(key string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set := ix.entries[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (ix *invertedIndex) contains(key, id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.entries[key].has(id)
}

func (ix *invertedIndex) clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = make(map[string]idSet)
}

// importanceIndex maps scores to ids. Scores live in the bounded
// [1,100] domain, so a threshold scan walks at most 100 buckets.
type importanceIndex struct {
	mu      sync.RWMutex
	buckets map[int]idSet
}

func newImportanceIndex() *importanceIndex {
	return &importanceIndex{buckets: make(map[int]idSet)}
}

func (ix *importanceIndex) insert(score int, id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.buckets[score]
	if !ok {
		set = make(idSet)
		ix.buckets[score] = set
	}
	set.add(id)
}

func (ix *importanceIndex) atLeast(threshold int) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var ids []string
	for score := threshold; score <= 100; score++ {
		for id := range ix.buckets[score] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (ix *importanceIndex) clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buckets = make(map[int]idSet)
}

// IndexManager maintains the four secondary indices over the record
// cache: tag, importance, content type, and text (exact tokens plus a
// trigram fallback). The maintenance lock coordinates full rebuilds
// against concurrent readers: normal operations hold it shared, rebuild
// holds it exclusively.
type IndexManager struct {
	store *Store

	maint sync.RWMutex

	tags       *invertedIndex
	importance *importanceIndex
	types      *invertedIndex
	tokens     *invertedIndex
	trigrams   *invertedIndex
}

// NewIndexManager creates empty indices over the given store.
func NewIndexManager(store *Store) *IndexManager {
	return &IndexManager{
		store:      store,
		tags:       newInvertedIndex(),
		importance: newImportanceIndex(),
		types:      newInvertedIndex(),
		tokens:     newInvertedIndex(),
		trigrams:   newInvertedIndex(),
	}
}

// Index adds one record's current field values to every index.
func (im *IndexManager) Index(m *Memory) {
	im.maint.RLock()
	defer im.maint.RUnlock()
	im.indexLocked(m)
}

func (im *IndexManager) indexLocked(m *Memory) {
	for _, tag := range m.Tags {
		im.tags.insert(strings.ToLower(tag), m.ID)
	}
	im.importance.insert(m.Importance, m.ID)
	im.types.insert(m.ContentType, m.ID)

	for token := range tokenize(m.Content) {
		im.tokens.insert(token, m.ID)
	}
	for tri := range trigrams(m.Content) {
		im.trigrams.insert(tri, m.ID)
	}
}

// RebuildAll clears every index and repopulates it from a full cache
// scan. Used at startup and during maintenance; queries block for the
// duration.
func (im *IndexManager) RebuildAll() {
	im.maint.Lock()
	defer im.maint.Unlock()

	im.tags.clear()
	im.importance.clear()
	im.types.clear()
	im.tokens.clear()
	im.trigrams.clear()

	im.store.forEach(func(m *Memory) {
		im.indexLocked(m)
	})
}

// IDsWithTag returns ids indexed under the given tag.
func (im *IndexManager) IDsWithTag(tag string) []string {
	im.maint.RLock()
	defer im.maint.RUnlock()
	return im.tags.lookup(strings.ToLower(tag))
}

// IDsWithAllTags intersects the per-tag id sets.
func (im *IndexManager) IDsWithAllTags(tags []string) []string {
	im.maint.RLock()
	defer im.maint.RUnlock()

	if len(tags) == 0 {
		return nil
	}

	result := im.tags.lookup(strings.ToLower(tags[0]))
	for _, tag := range tags[1:] {
		var kept []string
		for _, id := range result {
			if im.tags.contains(strings.ToLower(tag), id) {
				kept = append(kept, id)
			}
		}
		result = kept
		if len(result) == 0 {
			break
		}
	}
	return result
}

// IDsWithMinImportance returns ids whose score is at least threshold.
func (im *IndexManager) IDsWithMinImportance(threshold int) []string {
	im.maint.RLock()
	defer im.maint.RUnlock()
	return im.importance.atLeast(threshold)
}

// IDsWithContentType returns ids indexed under the given content type.
func (im *IndexManager) IDsWithContentType(contentType string) []string {
	im.maint.RLock()
	defer im.maint.RUnlock()
	return im.types.lookup(contentType)
}

// SearchText finds ids containing every whitespace token of the query.
// When the exact-token intersection comes up empty it falls back to
// trigram overlap, accepting ids that share at least two trigrams with
// the query.
func (im *IndexManager) SearchText(query string) []string {
	im.maint.RLock()
	defer im.maint.RUnlock()

	if ids := im.exactTokenMatch(query); len(ids) > 0 {
		return ids
	}
	return im.trigramMatch(query)
}

func (im *IndexManager) exactTokenMatch(query string) []string {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var result []string
	first := true
	for token := range queryTokens {
		if first {
			result = im.tokens.lookup(token)
			first = false
			continue
		}
		var kept []string
		for _, id := range result {
			if im.tokens.contains(token, id) {
				kept = append(kept, id)
			}
		}
		result = kept
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

func (im *IndexManager) trigramMatch(query string) []string {
	overlap := make(map[string]int)
	for tri := range trigrams(query) {
		for _, id := range im.trigrams.lookup(tri) {
			overlap[id]++
		}
	}

	var ids []string
	for id, count := range overlap {
		if count >= minTrigramOverlap {
			ids = append(ids, id)
		}
	}
	return ids
}

// tokenize lowercases content and returns its whitespace-delimited
// tokens of length >= minTokenLength.
func tokenize(content string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(content)) {
		if len(field) >= minTokenLength {
			tokens[field] = struct{}{}
		}
	}
	return tokens
}

// trigrams returns every 3-character sliding window of the lowercased
// content.
func trigrams(content string) map[string]struct{} {
	lower := strings.ToLower(content)
	grams := make(map[string]struct{})
	for i := 0; i+trigramSize <= len(lower); i++ {
		grams[lower[i:i+trigramSize]] = struct{}{}
	}
	return grams
}
