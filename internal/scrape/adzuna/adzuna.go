package adzuna

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

const apiBase = "https://api.adzuna.com/v1/api/jobs"

// MaxKeywords bounds how many keywords are queried per country.
const MaxKeywords = 3

type Config struct {
	AppID          string
	AppKey         string
	Countries      []string
	Keywords       []string
	ResultsPerPage int
}

type response struct {
	Results []struct {
		ID          util.FlexString `json:"id"`
		Title       string          `json:"title"`
		RedirectURL string          `json:"redirect_url"`
		Company     struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
	} `json:"results"`

	// Adzuna reports failures either way depending on the endpoint.
	Exception string `json:"exception"`
	Display   string `json:"display"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Queries builds one query per country × keyword, keywords capped at MaxKeywords.
func Queries(cfg Config) []domain.Query {
	countries := cfg.Countries
	if len(countries) == 0 {
		countries = []string{"us"}
	}
	keywords := util.Cap(cfg.Keywords, MaxKeywords)
	perPage := cfg.ResultsPerPage
	if perPage <= 0 {
		perPage = 20
	}

	var out []domain.Query
	for _, country := range countries {
		country = strings.ToLower(strings.TrimSpace(country))
		if country == "" {
			continue
		}
		for _, kw := range keywords {
			v := url.Values{}
			v.Set("app_id", cfg.AppID)
			v.Set("app_key", cfg.AppKey)
			v.Set("results_per_page", strconv.Itoa(perPage))
			v.Set("what", kw)
			out = append(out, domain.Query{
				URL:   fmt.Sprintf("%s/%s/search/1?%s", apiBase, url.PathEscape(country), v.Encode()),
				Label: fmt.Sprintf("adzuna %s %q", country, kw),
			})
		}
	}
	return out
}

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	var resp response
	if err := types.DecodeJSON(raw.Payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("api error: %s", resp.Error.Message)
	}
	if resp.Exception != "" {
		return nil, errors.New("api error: " + strings.TrimSpace(resp.Exception+" "+resp.Display))
	}

	out := make([]domain.Posting, 0, len(resp.Results))
	for _, r := range resp.Results {
		title := util.CleanText(r.Title)
		link := strings.TrimSpace(r.RedirectURL)
		if title == "" || link == "" {
			continue
		}
		out = append(out, domain.Posting{
			ID:       util.PostingID(string(domain.ProviderAdzuna), r.ID.String(), link),
			Title:    title,
			Company:  util.CleanText(r.Company.DisplayName),
			URL:      link,
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}
