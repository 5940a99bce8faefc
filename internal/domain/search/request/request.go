// Package request validates search inputs before they reach retrieval.
package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/courtside/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	// DefaultLimit is the record count used when a caller does not choose one.
	DefaultLimit = 5
	// MaxLimit caps limits accepted from external callers (HTTP).
	MaxLimit = 100
)

// Request is a validated search query.
type Request struct {
	query string
	limit int
}

// New validates search parameters. The query is kept verbatim; only its
// trimmed form is checked for emptiness. Errors wrap domain.ErrInvalidArgument.
func New(query string, limit int) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidArgument, MaxQueryLength)
	}
	if limit < 1 {
		return Request{}, fmt.Errorf("%w: limit must be at least 1, got %d", domain.ErrInvalidArgument, limit)
	}
	return Request{query: query, limit: limit}, nil
}

// Query returns the query text as supplied.
func (r Request) Query() string { return r.query }

// Limit returns the maximum number of records to return.
func (r Request) Limit() int { return r.limit }

// ClampLimit applies DefaultLimit to zero and rejects values above MaxLimit.
// Used by adapters that accept an optional limit from untrusted callers.
func ClampLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultLimit, nil
	case limit > MaxLimit:
		return 0, fmt.Errorf("%w: limit must be at most %d, got %d", domain.ErrInvalidArgument, MaxLimit, limit)
	default:
		return limit, nil
	}
}
