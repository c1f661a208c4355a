package llm

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// NoAnswer is returned by the extractive answerer when no sentence shares a
// content word with the question.
const NoAnswer = "I don't know based on this document."

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
)

// Extractive answers offline by returning the context sentence with the
// most content words in common with the question. Ties go to the earlier
// sentence.
type Extractive struct {
	stats *LLMStats
}

func NewExtractive(stats *LLMStats) *Extractive {
	return &Extractive{stats: stats}
}

func (e *Extractive) Model() string { return "extractive" }

func (e *Extractive) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { e.stats.Record(time.Since(start).Milliseconds()) }()

	q := contentWords(question)
	if len(q) == 0 {
		return NoAnswer, nil
	}

	best, bestScore := "", 0
	for _, c := range contexts {
		for _, s := range sentenceRe.FindAllString(c, -1) {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" {
				continue
			}
			score := 0
			for w := range contentWords(s) {
				if _, ok := q[w]; ok {
					score++
				}
			}
			if score > bestScore {
				best, bestScore = s, score
			}
		}
	}
	if bestScore == 0 {
		return NoAnswer, nil
	}
	return best, nil
}

func contentWords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those",
		"from", "what", "which", "who", "whom", "how", "why", "when", "where", "do", "does", "did",
		"about", "into", "can", "will", "there", "their", "they", "its", "i", "you", "we", "me",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
