package lever

import (
	"fmt"
	"net/url"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

type Config struct {
	Companies []Company
}

type Company struct {
	Slug string // api.lever.co/v0/postings/<slug>
	Name string
}

type leverPosting struct {
	ID        string `json:"id"`
	Text      string `json:"text"` // title
	HostedURL string `json:"hostedUrl"`
}

func Queries(cfg Config) []domain.Query {
	out := make([]domain.Query, 0, len(cfg.Companies))
	for _, co := range cfg.Companies {
		slug := strings.TrimSpace(co.Slug)
		if slug == "" {
			continue
		}
		name := strings.TrimSpace(co.Name)
		if name == "" {
			name = slug
		}
		out = append(out, domain.Query{
			URL:     fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", url.PathEscape(slug)),
			Label:   "lever " + slug,
			Company: name,
			Key:     slug,
		})
	}
	return out
}

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	var postings []leverPosting
	if err := types.DecodeJSON(raw.Payload, &postings); err != nil {
		return nil, err
	}

	out := make([]domain.Posting, 0, len(postings))
	for _, p := range postings {
		if p.ID == "" || p.HostedURL == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, domain.Posting{
			ID:       util.PostingID("lever", raw.Query.Key+":"+p.ID, p.HostedURL),
			Title:    util.CleanText(p.Text),
			Company:  raw.Query.Company,
			URL:      strings.TrimSpace(p.HostedURL),
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}
