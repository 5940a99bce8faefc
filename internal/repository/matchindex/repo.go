// Package matchindex queries the match vector index and maps hits onto match records.
package matchindex

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/courtside/internal/db"
	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/search/filter"
)

// KeyPrefix is the hash key prefix of indexed match documents.
const KeyPrefix = domain.KeyPrefix + "match:"

// Hash fields written by ingestion.
const (
	fieldMatchID         = "match_id"
	fieldDescription     = "description"
	fieldTournamentName  = "tournament_name"
	fieldTournamentLevel = "tournament_level"
	fieldTournamentDate  = "tournament_date"
	fieldSurface         = "surface"
	fieldWinnerName      = "winner_name"
	fieldWinnerID        = "winner_id"
	fieldLoserName       = "loser_name"
	fieldLoserID         = "loser_id"
	fieldScore           = "score"
	fieldRound           = "round"
)

var returnFields = []string{
	fieldMatchID, fieldDescription,
	fieldTournamentName, fieldTournamentLevel, fieldTournamentDate, fieldSurface,
	fieldWinnerName, fieldWinnerID, fieldLoserName, fieldLoserID,
	fieldScore, fieldRound,
	"winner_aces", "winner_df", "winner_svpt", "winner_1st_in", "winner_1st_won", "winner_2nd_won",
	"loser_aces", "loser_df", "loser_svpt", "loser_1st_in", "loser_1st_won", "loser_2nd_won",
}

// store is the consumer interface for index queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements retrieval.Index over an FT index of match hashes.
type Repo struct {
	store     store
	indexName string
}

// New creates a match index repository. An empty indexName selects domain.DefaultMatchIndex.
func New(s store, indexName string) *Repo {
	if indexName == "" {
		indexName = domain.DefaultMatchIndex
	}
	return &Repo{store: s, indexName: indexName}
}

// IndexName returns the FT index this repository queries.
func (r *Repo) IndexName() string { return r.indexName }

// Query returns up to topK records nearest to vector that satisfy filters,
// ordered by descending similarity.
func (r *Repo) Query(
	ctx context.Context, vector []float32, topK int, filters filter.Expression,
) ([]match.Record, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexQueryFailure, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	records := make([]match.Record, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		records = append(records, toRecord(entry))
	}
	return records, nil
}

// Ready reports whether the match index exists.
func (r *Repo) Ready(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if !ok {
		return fmt.Errorf("index %s: %w", r.indexName, db.ErrIndexNotFound)
	}
	return nil
}

func toRecord(entry db.SearchEntry) match.Record {
	f := entry.Fields

	id := f[fieldMatchID]
	if id == "" {
		id = strings.TrimPrefix(entry.Key, KeyPrefix)
	}

	return match.Record{
		MatchID:         id,
		TournamentName:  f[fieldTournamentName],
		TournamentLevel: f[fieldTournamentLevel],
		TournamentDate:  f[fieldTournamentDate],
		Surface:         match.ParseSurface(f[fieldSurface]),
		WinnerName:      f[fieldWinnerName],
		WinnerID:        f[fieldWinnerID],
		LoserName:       f[fieldLoserName],
		LoserID:         f[fieldLoserID],
		Score:           f[fieldScore],
		Round:           match.ParseRound(f[fieldRound]),
		Description:     f[fieldDescription],
		Similarity:      entry.Score,
		Stats: match.Stats{
			WinnerAces:         intField(f, "winner_aces"),
			WinnerDoubleFaults: intField(f, "winner_df"),
			WinnerServePoints:  intField(f, "winner_svpt"),
			WinnerFirstIn:      intField(f, "winner_1st_in"),
			WinnerFirstWon:     intField(f, "winner_1st_won"),
			WinnerSecondWon:    intField(f, "winner_2nd_won"),
			LoserAces:          intField(f, "loser_aces"),
			LoserDoubleFaults:  intField(f, "loser_df"),
			LoserServePoints:   intField(f, "loser_svpt"),
			LoserFirstIn:       intField(f, "loser_1st_in"),
			LoserFirstWon:      intField(f, "loser_1st_won"),
			LoserSecondWon:     intField(f, "loser_2nd_won"),
		},
	}
}

// intField parses a stat; ingestion writes floats ("7.0") for pandas-sourced columns.
func intField(fields map[string]string, name string) *int {
	raw := strings.TrimSpace(fields[name])
	if raw == "" {
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return &n
	}
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(fl) {
		return nil
	}
	n := int(fl)
	return &n
}
