// Package match resolves free-text names against the live collections.
// Exact matching is the fast path; fuzzy matching (edit-distance similarity
// with a token-overlap bonus) is the fallback for typos and nicknames.
//
// All functions are pure: candidates are passed in, nothing is cached.
package match

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/communityops/engage/modules/engagement/domain/model"
)

const (
	// DefaultThreshold is the minimum similarity for candidate lists.
	DefaultThreshold = 0.6
	// AcceptThreshold is the score at which BestMatch accepts without fallback.
	AcceptThreshold = 0.75
	// tokenBonus is added when the search and candidate share a whole token.
	tokenBonus = 0.2
)

// Match is one scored candidate.
type Match struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Similarity float64   `json:"similarity"`
}

// Candidate exposes the fields fuzzy matching needs.
type Candidate struct {
	ID   uuid.UUID
	Name string
}

// Similarity returns a case-insensitive edit-distance similarity in [0,1].
// Both strings empty scores 1; exactly one empty scores 0.
func Similarity(a, b string) float64 {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	maxLen := max(len([]rune(la)), len([]rune(lb)))
	if maxLen == 0 {
		return 1
	}
	d := fuzzy.LevenshteinDistance(la, lb)
	score := 1 - float64(d)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(name string) []string {
	return strings.Fields(strings.ToLower(name))
}

func hasCommonToken(a, b []string) bool {
	for _, ta := range a {
		for _, tb := range b {
			if ta == tb {
				return true
			}
		}
	}
	return false
}

// FindSimilar scores every candidate against the search name and returns the
// ones at or above threshold, best first. Ties keep candidate order.
func FindSimilar(searchName string, candidates []Candidate, threshold float64) []Match {
	searchTokens := tokenize(searchName)

	var matches []Match
	for _, c := range candidates {
		score := Similarity(searchName, c.Name)
		if hasCommonToken(searchTokens, tokenize(c.Name)) {
			score = min(1, score+tokenBonus)
		}
		if score >= threshold {
			matches = append(matches, Match{ID: c.ID, Name: c.Name, Similarity: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// BestMatch returns the first match at or above threshold. When none qualify
// it still returns the top-ranked match as a low-confidence fallback; the
// second return value reports whether the threshold was met.
func BestMatch(matches []Match, threshold float64) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	for _, m := range matches {
		if m.Similarity >= threshold {
			return m, true
		}
	}
	return matches[0], false
}

// TopMatches returns at most limit matches from an already ranked list.
func TopMatches(matches []Match, limit int) []Match {
	if limit < 0 || limit > len(matches) {
		limit = len(matches)
	}
	return matches[:limit]
}

// PersonCandidates adapts the people collection for FindSimilar.
func PersonCandidates(people []model.Person) []Candidate {
	out := make([]Candidate, len(people))
	for i, p := range people {
		out[i] = Candidate{ID: p.ID, Name: p.Name}
	}
	return out
}

// FamilyCandidates adapts the families collection for FindSimilar.
func FamilyCandidates(families []model.Family) []Candidate {
	out := make([]Candidate, len(families))
	for i, f := range families {
		out[i] = Candidate{ID: f.ID, Name: f.FamilyName}
	}
	return out
}

// ActivityCandidates adapts the activities collection for FindSimilar.
func ActivityCandidates(activities []model.Activity) []Candidate {
	out := make([]Candidate, len(activities))
	for i, a := range activities {
		out[i] = Candidate{ID: a.ID, Name: a.Name}
	}
	return out
}

// FindSimilarPeople ranks people by name similarity.
func FindSimilarPeople(searchName string, people []model.Person, threshold float64) []Match {
	return FindSimilar(searchName, PersonCandidates(people), threshold)
}

// FindSimilarFamilies ranks families by name similarity.
func FindSimilarFamilies(searchName string, families []model.Family, threshold float64) []Match {
	return FindSimilar(searchName, FamilyCandidates(families), threshold)
}

// FindSimilarActivities ranks activities by name similarity.
func FindSimilarActivities(searchName string, activities []model.Activity, threshold float64) []Match {
	return FindSimilar(searchName, ActivityCandidates(activities), threshold)
}

// BatchMatchPeople resolves several names at once, keyed by the input name.
func BatchMatchPeople(names []string, people []model.Person, threshold float64) map[string][]Match {
	out := make(map[string][]Match, len(names))
	candidates := PersonCandidates(people)
	for _, name := range names {
		out[name] = FindSimilar(name, candidates, threshold)
	}
	return out
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FindPersonExact returns the index of the person matching name and area
// case-insensitively, or -1. No similarity scoring is involved.
func FindPersonExact(name, area string, people []model.Person) int {
	for i := range people {
		if foldEqual(people[i].Name, name) && foldEqual(people[i].Area, area) {
			return i
		}
	}
	return -1
}

// FindFamilyExact returns the index of the family with a case-insensitively
// equal name, or -1.
func FindFamilyExact(name string, families []model.Family) int {
	for i := range families {
		if foldEqual(families[i].FamilyName, name) {
			return i
		}
	}
	return -1
}

// FindActivityExact returns the index of the activity with a
// case-insensitively equal name, or -1.
func FindActivityExact(name string, activities []model.Activity) int {
	for i := range activities {
		if foldEqual(activities[i].Name, name) {
			return i
		}
	}
	return -1
}
