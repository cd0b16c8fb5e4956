package memory

import (
	"sort"
	"strings"
)

// QueryEngine runs the multi-stage retrieval pipeline: candidate
// selection through the indices, predicate filtering, ranking, and
// pagination, with access-stat updates as a side effect.
type QueryEngine struct {
	store   *Store
	indexes *IndexManager
}

// NewQueryEngine creates a query engine over the store and its indices.
func NewQueryEngine(store *Store, indexes *IndexManager) *QueryEngine {
	return &QueryEngine{store: store, indexes: indexes}
}

// Retrieve executes a query and returns the final page of records.
// Every returned record has its access statistics bumped.
func (qe *QueryEngine) Retrieve(q Query) ([]*Memory, error) {
	candidates := qe.selectCandidates(q)

	var results []*Memory
	for _, id := range candidates {
		m, err := qe.store.Get(id)
		if err != nil {
			continue
		}
		if qe.matches(m, q) {
			results = append(results, m)
		}
	}

	sortResults(results, q.SortBy, q.SortDirection)
	results = paginate(results, q.Offset, q.Limit)

	for _, m := range results {
		if err := qe.store.RecordAccess(m.ID); err != nil && !IsNotFound(err) {
			return nil, err
		}
	}

	return results, nil
}

// RetrieveRelevant is a convenience wrapper for text-only search with a
// result cap.
func (qe *QueryEngine) RetrieveRelevant(text string, maxResults int) ([]*Memory, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewStoreError(KindQuery, "RetrieveRelevant", ErrInvalidQuery)
	}
	return qe.Retrieve(Query{Text: text, Limit: maxResults})
}

// selectCandidates narrows the id space using exactly one selector, in
// precedence order: text, tags, importance floor, content types, all.
func (qe *QueryEngine) selectCandidates(q Query) []string {
	switch {
	case strings.TrimSpace(q.Text) != "":
		return qe.indexes.SearchText(q.Text)
	case len(q.Tags) > 0:
		return qe.indexes.IDsWithAllTags(q.Tags)
	case q.MinImportance > 0:
		return qe.indexes.IDsWithMinImportance(q.MinImportance)
	case len(q.ContentTypes) > 0:
		seen := make(map[string]struct{})
		var ids []string
		for _, ct := range q.ContentTypes {
			for _, id := range qe.indexes.IDsWithContentType(ct) {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
		return ids
	default:
		return qe.store.IDs()
	}
}

// matches applies the AND-combined secondary predicates.
func (qe *QueryEngine) matches(m *Memory, q Query) bool {
	for _, excluded := range q.ExcludeTags {
		if m.HasTag(excluded) {
			return false
		}
	}

	if q.MinImportance > 0 && m.Importance < q.MinImportance {
		return false
	}

	if q.DateFrom != nil && m.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && m.CreatedAt.After(*q.DateTo) {
		return false
	}

	if len(q.ContentTypes) > 0 {
		allowed := false
		for _, ct := range q.ContentTypes {
			if m.ContentType == ct {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return true
}

// sortResults orders records by the requested field and direction.
// Unspecified or unrecognized fields fall back to importance descending
// with creation time descending as tiebreak.
func sortResults(results []*Memory, field SortField, dir SortDirection) {
	asc := dir == SortAscending

	var less func(a, b *Memory) bool
	switch field {
	case SortByImportance:
		less = func(a, b *Memory) bool { return a.Importance < b.Importance }
	case SortByDate:
		less = func(a, b *Memory) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByAccess:
		less = func(a, b *Memory) bool { return a.AccessCount < b.AccessCount }
	default:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Importance != results[j].Importance {
				return results[i].Importance > results[j].Importance
			}
			return results[i].CreatedAt.After(results[j].CreatedAt)
		})
		return
	}

	sort.SliceStable(results, func(i, j int) bool {
		if asc {
			return less(results[i], results[j])
		}
		return less(results[j], results[i])
	})
}

// paginate applies offset then limit; limit 0 means unbounded.
func paginate(results []*Memory, offset, limit int) []*Memory {
	if offset >= len(results) {
		return nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
