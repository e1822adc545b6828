package project

import "sort"

// maxSuggestionDistance bounds how far a known code may be from the
// requested one to count as a suggestion.
const maxSuggestionDistance = 2

// maxSuggestions caps the suggestion list on NotFoundError.
const maxSuggestions = 3

// SuggestCodes returns the known codes nearest to the requested one by
// edit distance, closest first, ties broken alphabetically.
func SuggestCodes(requested string, known []string) []string {
	requested = NormalizeCode(requested)

	type scored struct {
		code string
		dist int
	}
	var candidates []scored
	for _, code := range known {
		d := editDistance(requested, code)
		if d <= maxSuggestionDistance {
			candidates = append(candidates, scored{code: code, dist: d})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].code < candidates[j].code
	})

	n := len(candidates)
	if n > maxSuggestions {
		n = maxSuggestions
	}
	out := make([]string, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, c.code)
	}
	return out
}

// editDistance is the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
