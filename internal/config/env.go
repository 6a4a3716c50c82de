package config

import (
	"os"
	"strings"
)

const DefaultKeywords = "react,react native,mobile"

// LookupFunc resolves one environment key. Secrets.Lookup adds an OS keyring
// fallback on top of os.Getenv.
type LookupFunc func(key string) string

type Env struct {
	Keywords       []string `json:"keywords"`
	TelegramToken  string   `json:"-"`
	TelegramChatID string   `json:"-"`
	AdzunaAppID    string   `json:"-"`
	AdzunaAppKey   string   `json:"-"`
	GoogleAPIKey   string   `json:"-"`
	GoogleCSEID    string   `json:"-"`
}

func (e Env) HasTelegram() bool { return e.TelegramToken != "" && e.TelegramChatID != "" }
func (e Env) HasAdzuna() bool   { return e.AdzunaAppID != "" && e.AdzunaAppKey != "" }
func (e Env) HasGoogle() bool   { return e.GoogleAPIKey != "" && e.GoogleCSEID != "" }

func LoadEnv(lookup LookupFunc) Env {
	if lookup == nil {
		lookup = os.Getenv
	}
	kw := lookup("SEARCH_KEYWORDS")
	if strings.TrimSpace(kw) == "" {
		kw = DefaultKeywords
	}
	return Env{
		Keywords:       SplitKeywords(kw),
		TelegramToken:  strings.TrimSpace(lookup("TELEGRAM_BOT_TOKEN")),
		TelegramChatID: strings.TrimSpace(lookup("TELEGRAM_CHAT_ID")),
		AdzunaAppID:    strings.TrimSpace(lookup("ADZUNA_APP_ID")),
		AdzunaAppKey:   strings.TrimSpace(lookup("ADZUNA_APP_KEY")),
		GoogleAPIKey:   strings.TrimSpace(lookup("GOOGLE_API_KEY")),
		GoogleCSEID:    strings.TrimSpace(lookup("GOOGLE_CSE_ID")),
	}
}

// SplitKeywords splits a comma list, lowercases, trims, and drops
// empty and duplicate entries.
func SplitKeywords(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range strings.Split(s, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
