package filter

import (
	"strings"

	"jobmonitor-engine/internal/domain"
)

// Normalize lowercases and trims keywords, dropping empty and duplicate ones.
func Normalize(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Matches reports whether any keyword is a case-insensitive substring of the
// posting title. Company, URL and source are never searched.
func Matches(p domain.Posting, keywords []string) bool {
	title := strings.ToLower(p.Title)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(title, k) {
			return true
		}
	}
	return false
}

// Apply returns the postings whose title matches, in input order.
func Apply(postings []domain.Posting, keywords []string) []domain.Posting {
	keywords = Normalize(keywords)
	out := make([]domain.Posting, 0, len(postings))
	for _, p := range postings {
		if Matches(p, keywords) {
			out = append(out, p)
		}
	}
	return out
}
