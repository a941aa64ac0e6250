package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEntityNotFound marks a lookup for an entity that is not in the snapshot.
// Snapshot-level lookups report a false "found" result instead;
// Analysis.LookupEntity returns it wrapped.
var ErrEntityNotFound = errors.New("entity not found")

// DataError reports a malformed input table: missing required columns or
// unparsable cells. It is not retryable.
type DataError struct {
	Source  string   // input table, e.g. "base assignments"
	Columns []string // offending columns
	Reason  string
}

func (e *DataError) Error() string {
	var sb strings.Builder
	sb.WriteString("data error")
	if e.Source != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Source)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if len(e.Columns) > 0 {
		sb.WriteString(fmt.Sprintf(" (columns: %s)", strings.Join(e.Columns, ", ")))
	}
	return sb.String()
}

// NewMissingColumnsError builds a DataError for absent required columns.
func NewMissingColumnsError(source string, columns []string) *DataError {
	return &DataError{Source: source, Columns: columns, Reason: "missing required columns"}
}

// NotFoundError reports that a requested period's source data does not exist.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not found: %s: %v", e.Resource, e.Err)
	}
	return "not found: " + e.Resource
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// CacheError reports a failed cache read or write. The cache layer logs it and
// treats it as a miss; it never reaches callers of the engine.
type CacheError struct {
	Op       string // "load" or "save"
	Category string
	Key      string
	Err      error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s/%s: %v", e.Op, e.Category, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsDataError reports whether err is or wraps a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
