// Package memory implements a file-backed memory store with multi-dimensional
// indexing, transaction logging, and heuristic importance scoring.
package memory

import (
	"time"
)

// ContentType labels what kind of payload a memory carries.
// The set is open; these are the values the store infers itself.
const (
	ContentTypeCode         = "code"
	ContentTypeArchitecture = "architecture"
	ContentTypeText         = "text"
)

// CreationMethod records how a memory entered the store.
const (
	CreationManual    = "manual"
	CreationAutomatic = "automatic"
)

// HighlightThreshold is the importance at or above which a record is
// mirrored into the highlights area.
const HighlightThreshold = 80

// Memory is a single persisted record.
type Memory struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int       `json:"access_count"`
	Content        string    `json:"content"`
	Importance     int       `json:"importance"`
	Tags           []string  `json:"tags"`
	Context        string    `json:"context,omitempty"`
	ContentHash    string    `json:"content_hash,omitempty"`
	Embedding      []float64 `json:"embedding,omitempty"`
	RelatedIDs     []string  `json:"related_memories,omitempty"`
	ContentType    string    `json:"content_type"`
	Version        int       `json:"version"`
	CreationMethod string    `json:"creation_method"`
}

// HasTag reports whether the memory carries the given tag.
func (m *Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RecordAccess bumps the access counter and timestamp.
func (m *Memory) RecordAccess() {
	m.AccessCount++
	m.LastAccessedAt = time.Now().UTC()
}

// clone returns a copy safe to hand to callers while the cached
// original keeps mutating.
func (m *Memory) clone() *Memory {
	cp := *m
	cp.Tags = append([]string(nil), m.Tags...)
	cp.Embedding = append([]float64(nil), m.Embedding...)
	cp.RelatedIDs = append([]string(nil), m.RelatedIDs...)
	return &cp
}

// SortField selects the ranking key for a query.
type SortField string

const (
	SortByImportance SortField = "importance"
	SortByDate       SortField = "date"
	SortByAccess     SortField = "access"
	SortDefault      SortField = ""
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Query describes a retrieval request. Zero values mean "no constraint".
type Query struct {
	// Text is a free-text search term. When set it takes precedence
	// over every other candidate selector.
	Text string

	// Tags a record must all carry to be a candidate.
	Tags []string

	// ExcludeTags removes any record carrying one of these tags.
	ExcludeTags []string

	// MinImportance is the lowest acceptable importance score.
	MinImportance int

	// DateFrom/DateTo bound the creation time, inclusive on both ends.
	DateFrom *time.Time
	DateTo   *time.Time

	// ContentTypes restricts results to the listed types.
	ContentTypes []string

	// Limit caps the result count; 0 means unbounded.
	Limit int

	// Offset skips that many records of the sorted result.
	Offset int

	SortBy        SortField
	SortDirection SortDirection

	// Semantic toggles embedding-based search. Reserved; the store does
	// not populate embeddings, so it currently has no effect.
	Semantic bool
}

// Stats is a derived aggregate over the whole record set. It is never
// persisted; UpdateStatistics regenerates it from the cache alone.
type Stats struct {
	TotalMemories     int            `json:"total_memories"`
	TotalHighlights   int            `json:"total_highlights"`
	ByTag             map[string]int `json:"by_tag"`
	ByImportance      map[string]int `json:"by_importance"`
	ByContentType     map[string]int `json:"by_content_type"`
	AverageImportance float64        `json:"average_importance"`
	TotalSizeBytes    int64          `json:"total_size_bytes"`
	ComputedAt        time.Time      `json:"computed_at"`
}
