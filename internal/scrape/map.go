package scrape

import (
	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/google"
	"jobmonitor-engine/internal/scrape/greenhouse"
	"jobmonitor-engine/internal/scrape/lever"
	"jobmonitor-engine/internal/scrape/smartrecruiters"
)

func MapGreenhouseCompanies(in []config.Company) []greenhouse.Company {
	out := make([]greenhouse.Company, 0, len(in))
	for _, c := range in {
		out = append(out, greenhouse.Company{
			Slug: c.Slug,
			Name: c.Name,
		})
	}
	return out
}

func MapLeverCompanies(in []config.Company) []lever.Company {
	out := make([]lever.Company, 0, len(in))
	for _, c := range in {
		out = append(out, lever.Company{
			Slug: c.Slug,
			Name: c.Name,
		})
	}
	return out
}

func MapSmartRecruitersCompanies(in []config.Company) []smartrecruiters.Company {
	out := make([]smartrecruiters.Company, 0, len(in))
	for _, c := range in {
		out = append(out, smartrecruiters.Company{
			Slug: c.Slug,
			Name: c.Name,
		})
	}
	return out
}

func MapSearchSites(in []config.SearchSite) []google.Site {
	out := make([]google.Site, 0, len(in))
	for _, s := range in {
		out = append(out, google.Site{
			Domain: s.Domain,
			Name:   s.Name,
		})
	}
	return out
}

func mapRateLimit(rl config.RateLimit) domain.RateLimit {
	return domain.RateLimit{Requests: rl.Requests, Window: rl.Window.Duration}
}
