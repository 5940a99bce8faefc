package query

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/courtside/internal/domain/match"
)

type tournamentAlias struct {
	alias     string
	canonical string
}

// tournamentAliases is scanned in order; the first alias contained in the query wins.
var tournamentAliases = []tournamentAlias{
	{"australian open", "Australian Open"},
	{"french open", "Roland Garros"},
	{"roland garros", "Roland Garros"},
	{"wimbledon", "Wimbledon"},
	{"us open", "US Open"},
}

type roundPattern struct {
	pattern *regexp.Regexp
	round   match.Round
}

// roundPatterns is evaluated top to bottom, first match wins.
// Quarter and semi variants precede the bare final pattern.
var roundPatterns = []roundPattern{
	{regexp.MustCompile(`\bquarter[- ]?finals?\b`), match.RoundQuarterFinal},
	{regexp.MustCompile(`\bsemi[- ]?finals?\b`), match.RoundSemiFinal},
	{regexp.MustCompile(`\bfinals?\b`), match.RoundFinal},
	{regexp.MustCompile(`\b(?:fourth[- ]?rounds?|round[- ]?of[- ]?16|r16)\b`), match.RoundOf16},
	{regexp.MustCompile(`\b(?:third[- ]?rounds?|round[- ]?of[- ]?32|r32)\b`), match.RoundOf32},
	{regexp.MustCompile(`\b(?:second[- ]?rounds?|round[- ]?of[- ]?64|r64)\b`), match.RoundOf64},
	{regexp.MustCompile(`\b(?:first[- ]?rounds?|round[- ]?of[- ]?128|r128)\b`), match.RoundOf128},
}

// victoryPattern marks questions about who took the title.
var victoryPattern = regexp.MustCompile(`\b(?:won|winner|champion|title|crown|triumph)\b`)

func matchTournament(q string) (string, bool) {
	for _, t := range tournamentAliases {
		if strings.Contains(q, t.alias) {
			return t.canonical, true
		}
	}
	return "", false
}

// matchRound tries explicit round mentions first; victory language only
// applies when none matched, and then implies the final.
func matchRound(q string) (match.Round, bool) {
	for _, rp := range roundPatterns {
		if rp.pattern.MatchString(q) {
			return rp.round, true
		}
	}
	if victoryPattern.MatchString(q) {
		return match.RoundFinal, true
	}
	return "", false
}
