package verify

import "strings"

// FuzzyMatch scores how strongly the candidate name appears in page text.
// Containment of the normalized candidate is a certain match; all significant
// name parts present scores just below; otherwise the similarity ratio of the
// two normalized strings decides against the threshold.
func FuzzyMatch(candidate, text string, threshold float64) (bool, float64) {
	cand := normalizeText(candidate)
	page := normalizeText(text)
	if cand == "" || page == "" {
		return false, 0
	}

	if strings.Contains(page, cand) {
		return true, 1.0
	}

	if parts := significantParts(cand); len(parts) > 0 && allPresent(page, parts) {
		return true, 0.95
	}

	score := Ratio(cand, page)
	return score >= threshold, score
}

// normalizeText lowercases and strips everything but letters, digits, and
// single spaces.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// significantParts splits a name into parts worth checking individually,
// skipping initials.
func significantParts(normalized string) []string {
	var parts []string
	for _, p := range strings.Fields(normalized) {
		if len(p) > 1 {
			parts = append(parts, p)
		}
	}
	return parts
}

func allPresent(page string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(page, p) {
			return false
		}
	}
	return true
}

// Ratio is the classic sequence-matcher similarity: twice the total length of
// the longest matching blocks over the combined length.
func Ratio(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	matched := matchTotal([]byte(a), []byte(b), 0, len(a), 0, len(b))
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchTotal sums matching blocks by recursing around the longest common
// substring of each region.
func matchTotal(a, b []byte, alo, ahi, blo, bhi int) int {
	i, j, size := longestMatch(a, b, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}
	total := size
	total += matchTotal(a, b, alo, i, blo, j)
	total += matchTotal(a, b, i+size, ahi, j+size, bhi)
	return total
}

// longestMatch finds the longest common substring of a[alo:ahi] and
// b[blo:bhi], preferring the earliest position on ties.
func longestMatch(a, b []byte, alo, ahi, blo, bhi int) (int, int, int) {
	b2j := make(map[byte][]int)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj, bestsize := alo, blo, 0
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
