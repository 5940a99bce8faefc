package query

import "strings"

// Kind is a coarse question category reported alongside answers.
type Kind string

// Question kinds.
const (
	KindStatistical Kind = "statistical"
	KindHeadToHead  Kind = "head_to_head"
	KindTournament  Kind = "tournament"
	KindSurface     Kind = "surface"
	KindGeneral     Kind = "general"
)

var kindKeywords = []struct {
	kind     Kind
	keywords []string
}{
	{KindStatistical, []string{"stats", "statistics", "average", "most", "least"}},
	{KindHeadToHead, []string{"head to head", "versus", "vs", "against"}},
	{KindTournament, []string{"french open", "roland garros", "wimbledon", "us open", "australian open"}},
	{KindSurface, []string{"clay", "grass", "hard"}},
}

// Classify returns the first kind whose keywords occur in q, or KindGeneral.
func Classify(q string) Kind {
	q = strings.ToLower(q)
	for _, k := range kindKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(q, kw) {
				return k.kind
			}
		}
	}
	return KindGeneral
}
