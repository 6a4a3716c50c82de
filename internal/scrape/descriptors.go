package scrape

import (
	"strings"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/adzuna"
	"jobmonitor-engine/internal/scrape/google"
	"jobmonitor-engine/internal/scrape/greenhouse"
	"jobmonitor-engine/internal/scrape/htmlsite"
	"jobmonitor-engine/internal/scrape/lever"
	"jobmonitor-engine/internal/scrape/remoteok"
	"jobmonitor-engine/internal/scrape/remotive"
	"jobmonitor-engine/internal/scrape/smartrecruiters"
)

// Selection values accepted by BuildDescriptors besides a provider or site id.
const (
	OnlyHTML       = "html"
	OnlyStructured = "structured"
)

// Skipped names a configured source left out of a run and why.
type Skipped struct {
	ID     string
	Reason string
}

// BuildDescriptors turns config into the run's source list: HTML sites in
// file order, then structured providers. only restricts the list to "html",
// "structured", a provider id or a site id; "" means everything enabled.
func BuildDescriptors(cfg config.Config, only string) ([]domain.SourceDescriptor, []Skipped, error) {
	only = strings.ToLower(strings.TrimSpace(only))

	var all []domain.SourceDescriptor
	var skipped []Skipped

	for _, s := range cfg.Sites {
		if s.Type != "" && s.Type != string(domain.KindHTML) {
			skipped = append(skipped, Skipped{s.Key, "type " + s.Type + " is not scraped"})
			continue
		}
		name := s.Name
		if name == "" {
			name = s.Key
		}
		maxJobs := s.MaxJobs
		if maxJobs <= 0 {
			maxJobs = htmlsite.DefaultMaxJobs
		}
		all = append(all, domain.SourceDescriptor{
			ID:                s.Key,
			Name:              name,
			Kind:              domain.KindHTML,
			URL:               s.URL,
			Selectors:         s.Selectors,
			FallbackSelectors: s.FallbackSelectors,
			Enabled:           s.IsEnabled(),
			MaxResults:        maxJobs,
			RateLimit:         mapRateLimit(s.RateLimit),
		})
	}

	structured := func(p domain.Provider, name string, src config.APISource, queries []domain.Query) {
		if !src.Enabled {
			return
		}
		if len(queries) == 0 {
			skipped = append(skipped, Skipped{string(p), "no queries configured"})
			return
		}
		all = append(all, domain.SourceDescriptor{
			ID:         string(p),
			Name:       name,
			Kind:       domain.KindStructured,
			Provider:   p,
			Queries:    queries,
			Enabled:    true,
			MaxResults: src.MaxResults,
			RateLimit:  mapRateLimit(src.RateLimit),
		})
	}

	structured(domain.ProviderRemoteOK, "RemoteOK", cfg.RemoteOK, remoteok.Queries())
	structured(domain.ProviderRemotive, "Remotive", cfg.Remotive.APISource, remotive.Queries(cfg.Remotive.Categories))

	if cfg.Adzuna.Enabled && !cfg.Env.HasAdzuna() {
		skipped = append(skipped, Skipped{string(domain.ProviderAdzuna), "ADZUNA_APP_ID/ADZUNA_APP_KEY not set"})
	} else {
		structured(domain.ProviderAdzuna, "Adzuna", cfg.Adzuna.APISource, adzuna.Queries(adzuna.Config{
			AppID:          cfg.Env.AdzunaAppID,
			AppKey:         cfg.Env.AdzunaAppKey,
			Countries:      cfg.Adzuna.Countries,
			Keywords:       cfg.Env.Keywords,
			ResultsPerPage: cfg.Adzuna.ResultsPerPage,
		}))
	}

	search := cfg.Search.Settings
	if search.Enabled && !cfg.Env.HasGoogle() {
		skipped = append(skipped, Skipped{string(domain.ProviderGoogle), "GOOGLE_API_KEY/GOOGLE_CSE_ID not set"})
	} else {
		// each query returns at most max_results_per_query items
		structured(domain.ProviderGoogle, "Google", config.APISource{
			Enabled:    search.Enabled,
			MaxResults: search.MaxResultsPerQuery,
			RateLimit:  search.RateLimit,
		}, google.Queries(google.Config{
			APIKey:       cfg.Env.GoogleAPIKey,
			CSEID:        cfg.Env.GoogleCSEID,
			Keywords:     cfg.Search.Keywords,
			Sites:        MapSearchSites(cfg.Search.Sites),
			Num:          search.MaxResultsPerQuery,
			DateRestrict: search.DateRestrict,
		}))
	}

	ats := cfg.ATS
	structured(domain.ProviderGreenhouse, "Greenhouse", ats.Greenhouse.APISource,
		greenhouse.Queries(greenhouse.Config{Companies: MapGreenhouseCompanies(ats.Greenhouse.Companies)}))
	structured(domain.ProviderLever, "Lever", ats.Lever.APISource,
		lever.Queries(lever.Config{Companies: MapLeverCompanies(ats.Lever.Companies)}))
	structured(domain.ProviderSmartRecruiters, "SmartRecruiters", ats.SmartRecruiters.APISource,
		smartrecruiters.Queries(smartrecruiters.Config{Companies: MapSmartRecruitersCompanies(ats.SmartRecruiters.Companies)}, ats.SmartRecruiters.MaxResults))

	if only == "" {
		return all, skipped, nil
	}

	var out []domain.SourceDescriptor
	known := false
	for _, d := range all {
		if selects(only, d) {
			out = append(out, d)
		}
	}
	switch {
	case only == OnlyHTML || only == OnlyStructured:
		known = true
	case isProvider(only):
		known = true
	default:
		for _, s := range cfg.Sites {
			if strings.EqualFold(s.Key, only) {
				known = true
			}
		}
	}
	if !known {
		return nil, skipped, domain.ConfigErrorf("unknown source selection %q (use html, structured, a provider or a site id)", only)
	}
	return out, skipped, nil
}

func selects(only string, d domain.SourceDescriptor) bool {
	switch only {
	case OnlyHTML:
		return d.Kind == domain.KindHTML
	case OnlyStructured:
		return d.Kind == domain.KindStructured
	default:
		return strings.EqualFold(d.ID, only) || strings.EqualFold(string(d.Provider), only)
	}
}

func isProvider(s string) bool {
	switch domain.Provider(s) {
	case domain.ProviderRemoteOK, domain.ProviderRemotive, domain.ProviderAdzuna, domain.ProviderGoogle,
		domain.ProviderGreenhouse, domain.ProviderLever, domain.ProviderSmartRecruiters:
		return true
	}
	return false
}
