// Package analysis folds retrieved match records into per-player statistics
// used as grounding context for answers.
package analysis

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/match"
)

// PairSeparator joins the two player names of a head-to-head key.
const PairSeparator = " vs "

// TournamentWin is one win of a player at a tournament.
type TournamentWin struct {
	Year     string `json:"year"`
	Opponent string `json:"opponent"`
}

// SurfaceWin is one win of a player on a surface.
type SurfaceWin struct {
	Opponent   string `json:"opponent"`
	Tournament string `json:"tournament"`
}

// Meeting is one match between two players.
type Meeting struct {
	Winner     string        `json:"winner"`
	Loser      string        `json:"loser"`
	Tournament string        `json:"tournament"`
	Date       string        `json:"date"`
	Surface    match.Surface `json:"surface"`
}

// TournamentWins maps player → tournament → wins.
type TournamentWins map[string]map[string][]TournamentWin

// For returns the wins of player at tournament.
func (w TournamentWins) For(player, tournament string) []TournamentWin {
	return w[player][tournament]
}

func (w TournamentWins) add(player, tournament string, win TournamentWin) {
	byTournament, ok := w[player]
	if !ok {
		byTournament = make(map[string][]TournamentWin)
		w[player] = byTournament
	}
	byTournament[tournament] = append(byTournament[tournament], win)
}

// SurfaceWins maps player → surface → wins.
type SurfaceWins map[string]map[match.Surface][]SurfaceWin

// For returns the wins of player on surface.
func (w SurfaceWins) For(player string, surface match.Surface) []SurfaceWin {
	return w[player][surface]
}

func (w SurfaceWins) add(player string, surface match.Surface, win SurfaceWin) {
	bySurface, ok := w[player]
	if !ok {
		bySurface = make(map[match.Surface][]SurfaceWin)
		w[player] = bySurface
	}
	bySurface[surface] = append(bySurface[surface], win)
}

// HeadToHead maps a pair key (see PairKey) → meetings in input order.
type HeadToHead map[string][]Meeting

// Between returns the meetings of two players regardless of argument order.
func (h HeadToHead) Between(a, b string) []Meeting {
	return h[PairKey(a, b)]
}

func (h HeadToHead) add(m Meeting) {
	key := PairKey(m.Winner, m.Loser)
	h[key] = append(h[key], m)
}

// PairKey sorts the two names and joins them with PairSeparator,
// so "A vs B" and "B vs A" can never both exist.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + PairSeparator + b
}

// Report aggregates a batch of match records.
type Report struct {
	TournamentWins TournamentWins `json:"tournament_wins"`
	SurfaceWins    SurfaceWins    `json:"surface_wins"`
	HeadToHead     HeadToHead     `json:"head_to_head"`
	TotalMatches   int            `json:"total_matches"`
}

// Builder accumulates records into a Report. Not safe for concurrent use.
type Builder struct {
	report Report
}

// NewBuilder creates a Builder with an empty report.
func NewBuilder() *Builder {
	return &Builder{report: Report{
		TournamentWins: make(TournamentWins),
		SurfaceWins:    make(SurfaceWins),
		HeadToHead:     make(HeadToHead),
	}}
}

// Add folds one record into the report. A record missing a required field
// is rejected with domain.ErrMalformedRecord and leaves the report untouched.
func (b *Builder) Add(r *match.Record) error {
	if missing := missingFields(r); len(missing) > 0 {
		return fmt.Errorf("%w: match %q missing %s",
			domain.ErrMalformedRecord, r.MatchID, strings.Join(missing, ", "))
	}

	date := yearOf(r.TournamentDate)

	b.report.TournamentWins.add(r.WinnerName, r.TournamentName, TournamentWin{
		Year:     date,
		Opponent: r.LoserName,
	})
	b.report.SurfaceWins.add(r.WinnerName, r.Surface, SurfaceWin{
		Opponent:   r.LoserName,
		Tournament: r.TournamentName,
	})
	b.report.HeadToHead.add(Meeting{
		Winner:     r.WinnerName,
		Loser:      r.LoserName,
		Tournament: r.TournamentName,
		Date:       date,
		Surface:    r.Surface,
	})
	b.report.TotalMatches++
	return nil
}

// Report returns the accumulated report.
func (b *Builder) Report() Report { return b.report }

// Aggregate builds a fresh report from records in input order.
// The first malformed record fails the whole batch; no partial report is returned.
func Aggregate(records []match.Record) (Report, error) {
	b := NewBuilder()
	for i := range records {
		if err := b.Add(&records[i]); err != nil {
			return Report{}, fmt.Errorf("aggregate record %d: %w", i, err)
		}
	}
	return b.Report(), nil
}

func missingFields(r *match.Record) []string {
	var missing []string
	if r.WinnerName == "" {
		missing = append(missing, "winner_name")
	}
	if r.LoserName == "" {
		missing = append(missing, "loser_name")
	}
	if r.TournamentName == "" {
		missing = append(missing, "tournament_name")
	}
	if r.Surface == "" {
		missing = append(missing, "surface")
	}
	return missing
}

// yearOf returns the first 4 characters of a tournament date, or "" when shorter.
func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
