package courtside

import (
	"errors"

	"github.com/kailas-cloud/courtside/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument   = domain.ErrInvalidArgument
	ErrRetrievalFailure  = domain.ErrRetrievalFailure
	ErrEmbeddingFailure  = domain.ErrEmbeddingFailure
	ErrIndexQueryFailure = domain.ErrIndexQueryFailure
	ErrMalformedRecord   = domain.ErrMalformedRecord
	ErrAnswerFailure     = domain.ErrAnswerFailure

	// ErrAnswerNotConfigured is returned by Answer without WithChatModel.
	ErrAnswerNotConfigured = errors.New("courtside: chat model not configured (use WithChatModel)")
)

// RetrievalError reports which stage failed and, for per-year queries, which year.
type RetrievalError = domain.RetrievalError
