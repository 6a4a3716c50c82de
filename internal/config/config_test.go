package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmonitor-engine/internal/domain"
)

func env(m map[string]string) LookupFunc {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadMissingFilesKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Request.MaxRetries)
	assert.Equal(t, 10, cfg.Request.ConcurrentLimit)
	assert.Equal(t, filepath.Join(dir, "seen_jobs.json"), cfg.Ledger.Path)
	assert.Equal(t, []string{"react", "react native", "mobile"}, cfg.Env.Keywords)
	assert.Empty(t, cfg.Sites)
}

func TestLoadKeepsSiteOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SitesFile, `
request:
  max_retries: 5
  retry_base_delay: 0.5
sites:
  zeta:
    name: Zeta
    type: html
    url: https://zeta.example/jobs
    rate_limit: {requests: 2, window: 1s}
    selectors: {job_container: "li", title: "h2"}
  alpha:
    name: Alpha
    type: html
    enabled: false
    url: https://alpha.example/jobs
    selectors: {job_container: "div.job", title: self}
`)
	cfg, err := Load(dir, env(nil))
	require.NoError(t, err)

	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "zeta", cfg.Sites[0].Key)
	assert.Equal(t, "alpha", cfg.Sites[1].Key)
	assert.True(t, cfg.Sites[0].IsEnabled())
	assert.False(t, cfg.Sites[1].IsEnabled())
	assert.Equal(t, time.Second, cfg.Sites[0].RateLimit.Window.Duration)
	assert.Equal(t, 5, cfg.Request.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, Seconds(cfg.Request.RetryBaseDelay))
	// untouched keys keep defaults
	assert.Equal(t, 15.0, cfg.Request.Timeout)
}

func TestLoadMalformedIsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SitesFile, "sites: [not, a, mapping]\n")

	_, err := Load(dir, env(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfig))

	dir = t.TempDir()
	writeFile(t, dir, SearchFile, "settings: {enabled: [\n")
	_, err = Load(dir, env(nil))
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestLoadEnv(t *testing.T) {
	e := LoadEnv(env(map[string]string{
		"SEARCH_KEYWORDS":    " Go, Rust ,,go ",
		"TELEGRAM_BOT_TOKEN": "t",
		"TELEGRAM_CHAT_ID":   "c",
		"ADZUNA_APP_ID":      "id",
	}))
	assert.Equal(t, []string{"go", "rust"}, e.Keywords)
	assert.True(t, e.HasTelegram())
	assert.False(t, e.HasAdzuna())
	assert.False(t, e.HasGoogle())
}

func TestValidateDefaultsAreValid(t *testing.T) {
	cfg := Default()
	cfg.Env = LoadEnv(env(nil))
	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)
	assert.NoError(t, v.Err())
	assert.Equal(t, "json", out.Ledger.Backend)
}

func TestValidateCatchesBadSites(t *testing.T) {
	cfg := Default()
	cfg.Env = LoadEnv(env(nil))
	cfg.Request.MaxRetries = 0
	cfg.Ledger.Backend = "redis"
	cfg.Sites = Sites{
		{Key: "a", Type: "html", URL: "https://a.example", Selectors: domain.Selectors{JobContainer: "div[", Title: "h2"}},
		{Key: "b", Type: "html", Selectors: domain.Selectors{JobContainer: "li"}},
		{Key: "c", Type: "rss", URL: "https://c.example/feed"},
	}

	_, v := NormalizeAndValidate(cfg)
	require.False(t, v.OK())
	err := v.Err()
	assert.True(t, errors.Is(err, domain.ErrConfig))

	joined := err.Error()
	assert.Contains(t, joined, "request.max_retries")
	assert.Contains(t, joined, "ledger.backend")
	assert.Contains(t, joined, `sites.a.selectors.job_container: invalid selector "div["`)
	assert.Contains(t, joined, "sites.b.url is required")
	assert.Contains(t, joined, "sites.b.selectors.title is required")
	assert.NotContains(t, joined, "sites.c")
	assert.NotEmpty(t, v.Warnings)
}

func TestValidateClampsDateRestrict(t *testing.T) {
	cfg := Default()
	cfg.Env = LoadEnv(env(map[string]string{"GOOGLE_API_KEY": "k", "GOOGLE_CSE_ID": "x"}))
	cfg.Search.Settings.Enabled = true
	cfg.Search.Settings.DateRestrict = "m1"
	cfg.Search.Keywords = []string{"go"}
	cfg.Search.Sites = []SearchSite{{Domain: "jobs.example"}}

	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK())
	assert.Equal(t, "d7", out.Search.Settings.DateRestrict)
	found := false
	for _, w := range v.Warnings {
		if strings.Contains(w, "clamped") {
			found = true
		}
	}
	assert.True(t, found, v.Warnings)
}

func TestValidateDefaultsEmptyDateRestrictQuietly(t *testing.T) {
	cfg := Default()
	cfg.Env = LoadEnv(env(map[string]string{"GOOGLE_API_KEY": "k", "GOOGLE_CSE_ID": "x"}))
	cfg.Search.Settings.Enabled = true
	cfg.Search.Settings.DateRestrict = ""
	cfg.Search.Keywords = []string{"go"}
	cfg.Search.Sites = []SearchSite{{Domain: "jobs.example"}}

	out, v := NormalizeAndValidate(cfg)
	assert.Equal(t, "d7", out.Search.Settings.DateRestrict)
	for _, w := range v.Warnings {
		assert.NotContains(t, w, "date_restrict")
	}
}

func TestClampDateRestrict(t *testing.T) {
	tests := []struct {
		in      string
		out     string
		changed bool
		ok      bool
	}{
		{"d3", "d3", false, true},
		{"d7", "d7", false, true},
		{"w1", "w1", false, true},
		{"W1", "w1", false, true},
		{"d8", "d7", true, true},
		{"w2", "d7", true, true},
		{"m1", "d7", true, true},
		{"y1", "d7", true, true},
		{"", "d7", false, true},
		{"y25300000000000000", "d7", true, true},
		{"d9223372036854775807", "d7", true, true},
		{"d99999999999999999999", "d7", true, false},
		{"d0", "d7", true, false},
		{"week", "d7", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, changed, ok := ClampDateRestrict(tt.in)
			assert.Equal(t, tt.out, out)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestEnsureUserConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	written, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	cfg, err := Load(dir, env(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Sites)
	_, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)

	writeFile(t, dir, SitesFile, "request: {max_retries: 9}\n")
	written, err = EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Empty(t, written)
	b, _ := os.ReadFile(filepath.Join(dir, SitesFile))
	assert.Contains(t, string(b), "max_retries: 9")
}
