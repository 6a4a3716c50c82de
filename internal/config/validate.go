package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"

	"jobmonitor-engine/internal/domain"
)

// MaxDateRestrictDays is the widest search window sent to the search API.
const MaxDateRestrictDays = 7

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one domain.ErrConfig error, or nil.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return domain.ConfigErrorf("config validation failed:\n- %s", strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Search.Keywords = trimList(out.Search.Keywords)
	out.Adzuna.Countries = trimList(out.Adzuna.Countries)
	out.Remotive.Categories = trimList(out.Remotive.Categories)

	// ---- request policy ----
	r := &out.Request
	if r.MaxRetries < 1 {
		res.addErr("request.max_retries must be >= 1")
	}
	if r.Timeout <= 0 {
		res.addErr("request.timeout must be > 0")
	}
	if r.RetryBaseDelay < 0 || r.RetryMaxDelay < 0 {
		res.addErr("request.retry_base_delay and retry_max_delay must be >= 0")
	} else if r.RetryMaxDelay < r.RetryBaseDelay {
		res.addWarn("request.retry_max_delay (%v) is below retry_base_delay (%v); using the base delay as cap", r.RetryMaxDelay, r.RetryBaseDelay)
	}
	if r.ConcurrentLimit <= 0 {
		res.addErr("request.concurrent_limit must be > 0")
	} else if r.ConcurrentLimit > 50 {
		res.addWarn("request.concurrent_limit is very high (%d) and may trip rate limits", r.ConcurrentLimit)
	}
	if r.RunTimeout <= 0 {
		res.addErr("request.run_timeout must be > 0")
	}
	checkRate := func(name string, rl RateLimit) {
		if rl.Requests < 0 || rl.Window.Duration < 0 {
			res.addErr("%s.rate_limit must not be negative", name)
		}
		if rl.Requests > 0 && rl.Window.Duration == 0 {
			res.addErr("%s.rate_limit.window is required when requests is set", name)
		}
	}
	checkRate("request", r.RateLimit)

	// ---- keywords ----
	if len(out.Env.Keywords) == 0 {
		res.addErr("SEARCH_KEYWORDS is empty")
	}

	// ---- html sites ----
	ids := map[string]bool{}
	for i := range out.Sites {
		s := &out.Sites[i]
		name := "sites." + s.Key
		if strings.TrimSpace(s.Key) == "" {
			res.addErr("sites[%d] has an empty id", i)
		}
		if ids[s.Key] {
			res.addErr("%s is defined twice", name)
		}
		ids[s.Key] = true
		if s.Type == "" {
			s.Type = "html"
		}
		if s.Type != "html" {
			res.addWarn("%s has type %q; only html sites are scraped from this file", name, s.Type)
			continue
		}
		if !s.IsEnabled() {
			continue
		}
		if strings.TrimSpace(s.URL) == "" {
			res.addErr("%s.url is required", name)
		}
		if s.Selectors.JobContainer == "" && s.FallbackSelectors.JobContainer == "" {
			res.addErr("%s.selectors.job_container is required", name)
		}
		if s.Selectors.Title == "" && s.FallbackSelectors.Title == "" {
			res.addErr("%s.selectors.title is required", name)
		}
		for field, sel := range selectorFields(s.Selectors, s.FallbackSelectors) {
			if sel == "" || sel == "self" {
				continue
			}
			if _, err := cascadia.Compile(sel); err != nil {
				res.addErr("%s.%s: invalid selector %q: %v", name, field, sel, err)
			}
		}
		checkRate(name, s.RateLimit)
	}

	// ---- structured sources ----
	if out.Adzuna.Enabled && !out.Env.HasAdzuna() {
		res.addWarn("adzuna is enabled but ADZUNA_APP_ID/ADZUNA_APP_KEY are missing; it will be skipped")
	}
	if out.Search.Settings.Enabled {
		if !out.Env.HasGoogle() {
			res.addWarn("google search is enabled but GOOGLE_API_KEY/GOOGLE_CSE_ID are missing; it will be skipped")
		}
		if len(out.Search.Keywords) == 0 || len(out.Search.Sites) == 0 {
			res.addWarn("google search has no keywords or sites configured")
		}
		clamped, changed, ok := ClampDateRestrict(out.Search.Settings.DateRestrict)
		switch {
		case !ok:
			res.addWarn("settings.date_restrict %q is not understood; using %q", out.Search.Settings.DateRestrict, clamped)
		case changed:
			res.addWarn("settings.date_restrict %q exceeds %d days; clamped to %q", out.Search.Settings.DateRestrict, MaxDateRestrictDays, clamped)
		}
		out.Search.Settings.DateRestrict = clamped
	}
	for name, ats := range map[string]ATSSource{
		"ats.greenhouse":      out.ATS.Greenhouse,
		"ats.lever":           out.ATS.Lever,
		"ats.smartrecruiters": out.ATS.SmartRecruiters,
	} {
		if ats.Enabled && len(ats.Companies) == 0 {
			res.addWarn("%s is enabled but has no companies", name)
		}
	}

	// ---- ledger ----
	switch out.Ledger.Backend {
	case "", "json":
		out.Ledger.Backend = "json"
	case "sqlite":
	default:
		res.addErr("ledger.backend must be json or sqlite, got %q", out.Ledger.Backend)
	}
	if strings.TrimSpace(out.Ledger.Path) == "" {
		res.addErr("ledger.path is required")
	}

	if !out.Env.HasTelegram() {
		res.addWarn("TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID are missing; notifications are disabled")
	}

	return out, res
}

func selectorFields(sel, fb domain.Selectors) map[string]string {
	return map[string]string{
		"selectors.job_container":          sel.JobContainer,
		"selectors.title":                  sel.Title,
		"selectors.company":                sel.Company,
		"selectors.link":                   sel.Link,
		"fallback_selectors.job_container": fb.JobContainer,
		"fallback_selectors.title":         fb.Title,
		"fallback_selectors.company":       fb.Company,
		"fallback_selectors.link":          fb.Link,
	}
}

var dateRestrictRe = regexp.MustCompile(`^([dwmy])(\d+)$`)

var unitDays = map[string]int{"d": 1, "w": 7, "m": 30, "y": 365}

// ClampDateRestrict caps a search-API dateRestrict value ("d3", "w1", "m1")
// at MaxDateRestrictDays. An empty value defaults to the ceiling without
// counting as a change. Unparseable input yields the ceiling with ok=false.
func ClampDateRestrict(v string) (out string, changed, ok bool) {
	ceiling := "d" + strconv.Itoa(MaxDateRestrictDays)
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ceiling, false, true
	}
	m := dateRestrictRe.FindStringSubmatch(v)
	if m == nil {
		return ceiling, true, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return ceiling, true, false
	}
	// bound n first so the multiplication cannot overflow
	if n > MaxDateRestrictDays || n*unitDays[m[1]] > MaxDateRestrictDays {
		return ceiling, true, true
	}
	return v, false, true
}
