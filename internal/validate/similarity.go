package validate

import (
	"net/url"
	"strings"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Field weights for the pairwise similarity score. Names dominate, with
// exact contact matches pulling near-duplicates over the threshold.
const (
	weightName    = 0.4
	weightEmail   = 0.3
	weightPhone   = 0.2
	weightWebsite = 0.1
)

// Similarity scores two entities in [0,1]. The name contribution is a
// Levenshtein ratio; email, phone, and website contribute only on exact
// match after normalization.
func Similarity(a, b activity.Entity) float64 {
	score := weightName * nameRatio(a.Name, b.Name)

	if a.Email != "" && strings.EqualFold(a.Email, b.Email) {
		score += weightEmail
	}
	if pa, pb := activity.NormalizePhone(a.Phone), activity.NormalizePhone(b.Phone); pa != "" && pa == pb {
		score += weightPhone
	}
	if ha, hb := hostname(a.Website), hostname(b.Website); ha != "" && ha == hb {
		score += weightWebsite
	}
	return score
}

func nameRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with a rolling single-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur := prev[0]
		prev[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min3(prev[j]+1, prev[j-1]+1, cur+cost)
			cur = prev[j]
			prev[j] = next
		}
	}
	return prev[len(b)]
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

func hostname(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
