package courtside

import (
	"github.com/kailas-cloud/courtside/internal/domain/analysis"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/query"
	answeruc "github.com/kailas-cloud/courtside/internal/usecase/answer"
)

// Match is one retrieved match with its similarity to the question.
type Match = match.Record

// Surface is a court surface.
type Surface = match.Surface

// Surfaces.
const (
	SurfaceHard   = match.SurfaceHard
	SurfaceClay   = match.SurfaceClay
	SurfaceGrass  = match.SurfaceGrass
	SurfaceCarpet = match.SurfaceCarpet
)

// ParsedQuery is the intent extracted from a question.
type ParsedQuery = query.Parsed

// Analysis is the tournament, surface and head-to-head summary of a result set.
type Analysis = analysis.Report

// QueryType is the coarse category of a question.
type QueryType = query.Kind

// Answer is a composed answer with its sources.
type Answer = answeruc.Result

// SearchResult is the outcome of Client.Search.
type SearchResult struct {
	ID       string
	Parsed   ParsedQuery
	Matches  []Match
	Analysis Analysis
}

// ParseQuery extracts years, tournament and round from q without any I/O.
func ParseQuery(q string) ParsedQuery {
	return query.Parse(q)
}
