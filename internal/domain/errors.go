package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a rejected search input (empty query, limit < 1).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRetrievalFailure signals that retrieval could not complete.
	ErrRetrievalFailure = errors.New("retrieval failure")
	// ErrEmbeddingFailure signals an embedding provider failure.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrIndexQueryFailure signals a vector index query failure.
	ErrIndexQueryFailure = errors.New("index query failure")
	// ErrMalformedRecord signals a match record missing fields required for aggregation.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrAnswerFailure signals a language model answerer failure.
	ErrAnswerFailure = errors.New("answer failure")
)

// Retrieval stages reported by RetrievalError.
const (
	StageEmbed = "embed"
	StageIndex = "index"
)

// RetrievalError describes which collaborator failed during retrieval and,
// for index queries issued per year, which year branch.
type RetrievalError struct {
	Stage string
	Year  string
	Err   error
}

func (e *RetrievalError) Error() string {
	if e.Year != "" {
		return fmt.Sprintf("%s: %s (year %s): %v", ErrRetrievalFailure, e.Stage, e.Year, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrRetrievalFailure, e.Stage, e.Err)
}

// Unwrap exposes ErrRetrievalFailure, the stage sentinel and the cause.
func (e *RetrievalError) Unwrap() []error {
	errs := []error{ErrRetrievalFailure}
	switch e.Stage {
	case StageEmbed:
		errs = append(errs, ErrEmbeddingFailure)
	case StageIndex:
		errs = append(errs, ErrIndexQueryFailure)
	}
	return append(errs, e.Err)
}

// NewEmbedError wraps an embedding provider failure.
func NewEmbedError(err error) error {
	return &RetrievalError{Stage: StageEmbed, Err: err}
}

// NewIndexError wraps an index query failure; year is empty for the single-query path.
func NewIndexError(year string, err error) error {
	return &RetrievalError{Stage: StageIndex, Year: year, Err: err}
}
