// Package query extracts structured search intent from free-text tennis questions.
package query

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/courtside/internal/domain/match"
)

// Year bounds for ValidYears. Wimbledon started in 1877.
const (
	MinYear = 1877
	MaxYear = 2024
)

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// Parsed is the search intent extracted from one query.
// An absent field means unconstrained, never empty.
type Parsed struct {
	years      []string
	tournament *string
	round      *match.Round
}

// NewParsed builds a Parsed value directly. Nil pointers leave a field unconstrained.
func NewParsed(years []string, tournament *string, round *match.Round) Parsed {
	return Parsed{years: years, tournament: tournament, round: round}
}

// Years returns the extracted years in order of first appearance; nil when none.
func (p Parsed) Years() []string { return p.years }

// HasYears reports whether any year was extracted.
func (p Parsed) HasYears() bool { return len(p.years) > 0 }

// Tournament returns the canonical tournament name, if one was mentioned.
func (p Parsed) Tournament() (string, bool) {
	if p.tournament == nil {
		return "", false
	}
	return *p.tournament, true
}

// Round returns the round code, if one was mentioned or implied.
func (p Parsed) Round() (match.Round, bool) {
	if p.round == nil {
		return "", false
	}
	return *p.round, true
}

// ValidYears returns the extracted years that fall within MinYear..MaxYear.
func (p Parsed) ValidYears() []string {
	var out []string
	for _, y := range p.years {
		n, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		if n >= MinYear && n <= MaxYear {
			out = append(out, y)
		}
	}
	return out
}

// Parse extracts years, tournament and round from q. It never fails:
// a query with no recognizable intent yields a fully unconstrained result.
func Parse(q string) Parsed {
	q = strings.ToLower(strings.TrimSpace(q))

	var p Parsed
	p.years = extractYears(q)
	if t, ok := matchTournament(q); ok {
		p.tournament = &t
	}
	if r, ok := matchRound(q); ok {
		p.round = &r
	}
	return p
}

// extractYears returns distinct year tokens in order of first appearance.
func extractYears(q string) []string {
	found := yearPattern.FindAllString(q, -1)
	if len(found) == 0 {
		return nil
	}
	years := make([]string, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, y := range found {
		if _, dup := seen[y]; dup {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	return years
}

// MarshalJSON renders unconstrained fields as absent keys.
func (p Parsed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Years      []string     `json:"years,omitempty"`
		Tournament *string      `json:"tournament,omitempty"`
		Round      *match.Round `json:"round,omitempty"`
	}{p.years, p.tournament, p.round})
}
