package topic

import "strings"

// keywordWeight is the score contributed by each distinct keyword hit.
const keywordWeight = 3

// Bucket groups the keywords that signal one specialty topic.
type Bucket struct {
	Topic    string
	Keywords []string
}

// Match is the outcome of scoring a message against a set of buckets.
type Match struct {
	Topic string
	Score int
	Hits  []string
}

// Matched reports whether any bucket scored.
func (m Match) Matched() bool {
	return m.Score > 0
}

// Best scores text against buckets and returns the highest scoring topic.
// Ties resolve to the bucket listed first; a zero Match means no keyword hit.
func Best(text string, buckets []Bucket) Match {
	normalized := normalize(text)
	if normalized == "" {
		return Match{}
	}

	var best Match
	for _, bucket := range buckets {
		m := score(normalized, bucket)
		if m.Score > best.Score {
			best = m
		}
	}
	return best
}

// Scores returns the per-topic score for every bucket that hit, in bucket order.
func Scores(text string, buckets []Bucket) []Match {
	normalized := normalize(text)
	if normalized == "" {
		return nil
	}

	var out []Match
	for _, bucket := range buckets {
		if m := score(normalized, bucket); m.Score > 0 {
			out = append(out, m)
		}
	}
	return out
}

func score(normalized string, bucket Bucket) Match {
	m := Match{Topic: bucket.Topic}
	for _, word := range bucket.Keywords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if strings.Contains(normalized, word) {
			m.Score += keywordWeight
			m.Hits = append(m.Hits, word)
		}
	}
	return m
}

func normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}
