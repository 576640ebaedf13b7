package decision

import (
	"strings"
)

// MinMatchScore is the score a fuzzy topic match must exceed to be accepted.
const MinMatchScore = 0.6

func normalizeTopic(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// matchScore is 1 for equal strings, len(q)/len(t) when q is inside t, and
// 0.9*len(t)/len(q) when t is inside q.
func matchScore(q, t string) float64 {
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 1
	}
	if strings.Contains(t, q) {
		return float64(len(q)) / float64(len(t))
	}
	if strings.Contains(q, t) {
		return 0.9 * float64(len(t)) / float64(len(q))
	}
	return 0
}

// MatchTopic finds the catalog key a user-supplied topic string refers to. Keys are
// "Subject-Topic"; the query is scored against both the full key and the bare topic
// name, case-insensitively and with hyphens and underscores treated as spaces. An
// exact match wins outright. Ties keep the earlier key.
func MatchTopic(query string, keys []string) (int, bool) {
	q := normalizeTopic(query)
	if q == "" {
		return -1, false
	}
	best, bestScore := -1, 0.0
	for i, key := range keys {
		full := normalizeTopic(key)
		bare := full
		if _, name, ok := strings.Cut(key, "-"); ok {
			bare = normalizeTopic(name)
		}
		if q == full || q == bare {
			return i, true
		}
		score := max(matchScore(q, full), matchScore(q, bare))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore > MinMatchScore {
		return best, true
	}
	return -1, false
}
