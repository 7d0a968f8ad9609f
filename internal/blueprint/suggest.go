package blueprint

import (
	"path"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

const (
	maxSuggestions      = 5
	suggestionThreshold = 0.75
)

type suggestion struct {
	id    string
	score float32
}

// SuggestModules returns up to five module ids that look like id, best first.
// Used for "did you mean" hints on not-found results.
func (v *View) SuggestModules(id string) []string {
	if id == "" {
		return nil
	}
	want := strings.ToLower(id)
	wantBase := strings.ToLower(path.Base(id))

	var found []suggestion
	for _, candidate := range v.moduleIDs {
		lower := strings.ToLower(candidate)
		score := similarity(want, lower)
		if s := similarity(wantBase, strings.ToLower(path.Base(candidate))); s > score {
			score = s
		}
		if score >= suggestionThreshold {
			found = append(found, suggestion{id: candidate, score: score})
		}
	}
	return rank(found)
}

// SuggestSymbols returns up to five symbol ids whose id or name looks like id.
func (v *View) SuggestSymbols(id string) []string {
	if id == "" {
		return nil
	}
	want := strings.ToLower(id)

	var found []suggestion
	for _, candidate := range v.symbolIDs {
		score := similarity(want, strings.ToLower(candidate))
		if name := v.symbols[candidate].Symbol.Name; name != "" {
			if s := similarity(want, strings.ToLower(name)); s > score {
				score = s
			}
		}
		if score >= suggestionThreshold {
			found = append(found, suggestion{id: candidate, score: score})
		}
	}
	return rank(found)
}

func similarity(a, b string) float32 {
	if a == b {
		return 1
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return score
}

func rank(found []suggestion) []string {
	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].id < found[j].id
	})
	if len(found) > maxSuggestions {
		found = found[:maxSuggestions]
	}
	ids := make([]string, len(found))
	for i, s := range found {
		ids[i] = s.id
	}
	return ids
}
