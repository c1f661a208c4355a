package highlight

import (
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_']+`)

// Similarity scores two already-normalized strings in [0,1].
//
// The score is the larger of two Ratcliff/Obershelp ratios (2*M/T): one over
// the strings as given and one over their words in sorted order, so that a
// reordered paraphrase of a sentence still scores close to the sentence.
// Empty input on either side scores 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	score := ratio([]rune(a), []rune(b))
	if sorted := ratio([]rune(sortTokens(a)), []rune(sortTokens(b))); sorted > score {
		score = sorted
	}
	return score
}

func sortTokens(s string) string {
	toks := tokenRe.FindAllString(s, -1)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// ratio is the matching-blocks ratio over a and b. Inputs are put in a fixed
// order first so the result does not depend on argument order.
func ratio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) || (len(a) == len(b) && string(a) > string(b)) {
		a, b = b, a
	}
	return 2 * float64(matchingChars(a, b)) / float64(len(a)+len(b))
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingChars sums the sizes of the recursively found longest common
// blocks of a and b.
func matchingChars(a, b []rune) int {
	m := blockMatcher{
		b2j:  make(map[rune][]int),
		prev: make([]int, len(b)+1),
		cur:  make([]int, len(b)+1),
	}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}

	total := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := m.longestMatch(a, s)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// blockMatcher holds the positions of each rune of b and two run-length
// rows reused across longestMatch calls. Row slot j+1 holds the length of
// the match ending at b[j]; every slot is zero between calls.
type blockMatcher struct {
	b2j       map[rune][]int
	prev, cur []int
	prevSet   []int
	curSet    []int
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside s,
// preferring the earliest start in a, then in b.
func (m *blockMatcher) longestMatch(a []rune, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	for i := s.alo; i < s.ahi; i++ {
		for _, j := range m.b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := m.prev[j] + 1
			m.cur[j+1] = k
			m.curSet = append(m.curSet, j+1)
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		for _, x := range m.prevSet {
			m.prev[x] = 0
		}
		m.prev, m.cur = m.cur, m.prev
		m.prevSet, m.curSet = m.curSet, m.prevSet[:0]
	}
	for _, x := range m.prevSet {
		m.prev[x] = 0
	}
	m.prevSet = m.prevSet[:0]
	return besti, bestj, bestk
}
