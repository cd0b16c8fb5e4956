package memory

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store.
var (
	ErrNotFound        = errors.New("memory not found")
	ErrEmptyContent    = errors.New("memory content is empty")
	ErrStoreClosed     = errors.New("memory store is closed")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrHashMismatch    = errors.New("content hash mismatch")
	ErrMissingFile     = errors.New("record file missing on disk")
	ErrUntrackedFile   = errors.New("record file not present in cache")
	ErrCatalogDisabled = errors.New("metadata catalog is disabled")
)

// ErrorKind classifies a store failure.
type ErrorKind int

const (
	KindIo ErrorKind = iota
	KindSerialization
	KindConsistency
	KindTransaction
	KindValidation
	KindIndexing
	KindQuery
	KindPattern
	KindImportance
	KindConcurrentAccess
)

func (k ErrorKind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindSerialization:
		return "serialization"
	case KindConsistency:
		return "consistency"
	case KindTransaction:
		return "transaction"
	case KindValidation:
		return "validation"
	case KindIndexing:
		return "indexing"
	case KindQuery:
		return "query"
	case KindPattern:
		return "pattern"
	case KindImportance:
		return "importance"
	case KindConcurrentAccess:
		return "concurrent_access"
	default:
		return "unknown"
	}
}

// StoreError wraps a failure with the operation and path it occurred in.
type StoreError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("memory store %s error [%s] path=%s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("memory store %s error [%s]: %v", e.Kind, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a classified store error.
func NewStoreError(kind ErrorKind, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}

// NewStoreErrorWithPath creates a classified store error tied to a file path.
func NewStoreErrorWithPath(kind ErrorKind, op, path string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Path: path, Err: err}
}

// IsConsistencyViolation reports whether err is a consistency finding
// (hash mismatch or cache/disk divergence).
func IsConsistencyViolation(err error) bool {
	var se *StoreError
	if errors.As(err, &se) && se.Kind == KindConsistency {
		return true
	}
	return errors.Is(err, ErrHashMismatch) ||
		errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrUntrackedFile)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
