package resolver

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxSuggestions = 3

// Suggest returns up to three patterns whose text is closest to the
// leading word of text, for "did you mean" output.
func (r *Registry) Suggest(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var targets []string
	for _, e := range r.entries {
		d := e.Display()
		if !seen[d] {
			seen[d] = true
			targets = append(targets, d)
		}
	}

	ranks := fuzzy.RankFindFold(fields[0], targets)
	sort.Sort(ranks)

	var out []string
	for _, rank := range ranks {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, rank.Target)
	}
	return out
}
