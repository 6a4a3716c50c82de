package remotive

import (
	"net/url"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

const APIURL = "https://remotive.com/api/remote-jobs"

type response struct {
	Jobs []struct {
		ID          util.FlexString `json:"id"`
		Title       string          `json:"title"`
		CompanyName string          `json:"company_name"`
		URL         string          `json:"url"`
	} `json:"jobs"`
}

// Queries builds one query per category; an empty list means "software-dev".
func Queries(categories []string) []domain.Query {
	if len(categories) == 0 {
		categories = []string{"software-dev"}
	}
	out := make([]domain.Query, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, domain.Query{
			URL:   APIURL + "?category=" + url.QueryEscape(c),
			Label: "remotive " + c,
		})
	}
	return out
}

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	var resp response
	if err := types.DecodeJSON(raw.Payload, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Posting, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		title := util.CleanText(j.Title)
		link := strings.TrimSpace(j.URL)
		if title == "" || link == "" {
			continue
		}
		out = append(out, domain.Posting{
			ID:       util.PostingID(string(domain.ProviderRemotive), j.ID.String(), link),
			Title:    title,
			Company:  util.CleanText(j.CompanyName),
			URL:      link,
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}
