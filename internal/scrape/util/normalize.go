package util

import "strings"

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// SplitTitleCompany splits search-result titles like "Go Engineer - Acme" or
// "Go Engineer | Acme" on the last separator. Titles without one are
// returned unchanged with an empty company.
func SplitTitleCompany(raw string) (title, company string) {
	raw = CleanText(raw)
	for _, sep := range []string{" - ", " | "} {
		if i := strings.LastIndex(raw, sep); i > 0 {
			t := strings.TrimSpace(raw[:i])
			c := strings.TrimSpace(raw[i+len(sep):])
			if t != "" && c != "" {
				return t, c
			}
		}
	}
	return raw, ""
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
