package cluster

import (
	"sort"
	"strings"
	"unicode"

	"deflect.app/relay/internal/model"
)

// MaxKeywords caps the theme keywords kept per cluster.
const MaxKeywords = 8

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about after again all also am an and any are as at be because been
		before being but by can cannot could did do does doing don dont for from get got had has have
		having he her here hi hello how i if im in into is it its just me my need no not of on or our
		out please so some still than thank thanks that the their them then there these they this to
		too up us was we were what when where which while who why will with would yes you your`) {
		stopwords[w] = struct{}{}
	}
}

// Keywords returns the most frequent non-stopword terms across the members'
// subject and content. Ties are broken alphabetically so the result is
// stable for a given member list.
func Keywords(members []model.Ticket, limit int) []string {
	counts := make(map[string]int)
	for i := range members {
		for _, term := range terms(members[i].Text()) {
			counts[term]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}
