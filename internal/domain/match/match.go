// Package match defines the historical match record served by the vector index.
package match

import "strings"

// Surface is the court surface a match was played on.
type Surface string

// Surface values stored in the index.
const (
	SurfaceHard    Surface = "hard"
	SurfaceClay    Surface = "clay"
	SurfaceGrass   Surface = "grass"
	SurfaceCarpet  Surface = "carpet"
	SurfaceUnknown Surface = "unknown"
)

// ParseSurface maps stored surface text onto the enumeration.
// Empty input stays empty so aggregation can report it as missing.
func ParseSurface(s string) Surface {
	switch v := Surface(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ""
	case SurfaceHard, SurfaceClay, SurfaceGrass, SurfaceCarpet:
		return v
	default:
		return SurfaceUnknown
	}
}

// Round is a tournament elimination stage code.
type Round string

// Round codes.
const (
	RoundFinal        Round = "F"
	RoundSemiFinal    Round = "SF"
	RoundQuarterFinal Round = "QF"
	RoundOf16         Round = "R16"
	RoundOf32         Round = "R32"
	RoundOf64         Round = "R64"
	RoundOf128        Round = "R128"
	RoundOther        Round = "other"
)

// ParseRound maps a stored round code onto the enumeration.
// Codes outside the elimination bracket (RR, BR, Q1...) become RoundOther.
func ParseRound(s string) Round {
	switch v := Round(strings.ToUpper(strings.TrimSpace(s))); v {
	case RoundFinal, RoundSemiFinal, RoundQuarterFinal, RoundOf16, RoundOf32, RoundOf64, RoundOf128:
		return v
	default:
		return RoundOther
	}
}

// Stats holds per-match serve statistics. Every field is independently
// nullable because older matches in the source data lack them.
type Stats struct {
	WinnerAces         *int `json:"winner_aces,omitempty"`
	WinnerDoubleFaults *int `json:"winner_df,omitempty"`
	WinnerServePoints  *int `json:"winner_svpt,omitempty"`
	WinnerFirstIn      *int `json:"winner_1st_in,omitempty"`
	WinnerFirstWon     *int `json:"winner_1st_won,omitempty"`
	WinnerSecondWon    *int `json:"winner_2nd_won,omitempty"`
	LoserAces          *int `json:"loser_aces,omitempty"`
	LoserDoubleFaults  *int `json:"loser_df,omitempty"`
	LoserServePoints   *int `json:"loser_svpt,omitempty"`
	LoserFirstIn       *int `json:"loser_1st_in,omitempty"`
	LoserFirstWon      *int `json:"loser_1st_won,omitempty"`
	LoserSecondWon     *int `json:"loser_2nd_won,omitempty"`
}

// Record is a read-only snapshot of one match as stored in the index.
// MatchID starts with the 4-digit tournament year.
type Record struct {
	MatchID         string  `json:"match_id"`
	TournamentName  string  `json:"tournament_name"`
	TournamentLevel string  `json:"tournament_level,omitempty"`
	TournamentDate  string  `json:"tournament_date,omitempty"`
	Surface         Surface `json:"surface"`
	WinnerName      string  `json:"winner_name"`
	WinnerID        string  `json:"winner_id,omitempty"`
	LoserName       string  `json:"loser_name"`
	LoserID         string  `json:"loser_id,omitempty"`
	Score           string  `json:"score"`
	Round           Round   `json:"round"`
	Description     string  `json:"description"`
	Similarity      float64 `json:"similarity"` // search time only
	Stats           Stats   `json:"stats"`
}

// Year returns the year prefix of the match identifier, or "" when the
// identifier is too short.
func (r *Record) Year() string {
	if len(r.MatchID) < 4 {
		return ""
	}
	return r.MatchID[:4]
}

// InYear reports whether the match identifier starts with year.
func (r *Record) InYear(year string) bool {
	return year != "" && strings.HasPrefix(r.MatchID, year)
}
