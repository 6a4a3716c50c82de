package greenhouse

import (
	"fmt"
	"net/url"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

type Config struct {
	Companies []Company // list of boards
}

type Company struct {
	Slug string // boards.greenhouse.io/<slug>
	Name string // display name
}

type boardResponse struct {
	Jobs []struct {
		ID          util.FlexString `json:"id"`
		Title       string          `json:"title"`
		AbsoluteURL string          `json:"absolute_url"`
	} `json:"jobs"`
}

// Queries builds one board-API query per company.
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
			URL:     fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs", url.PathEscape(slug)),
			Label:   "greenhouse " + slug,
			Company: name,
			Key:     slug,
		})
	}
	return out
}

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	var resp boardResponse
	if err := types.DecodeJSON(raw.Payload, &resp); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	out := make([]domain.Posting, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		title := util.CleanText(j.Title)
		link := strings.TrimSpace(j.AbsoluteURL)
		if title == "" || link == "" || j.ID == "" {
			continue
		}
		id := util.PostingID("greenhouse", raw.Query.Key+":"+j.ID.String(), link)
		if seen[id] {
			continue
		}
		seen[id] = true

		out = append(out, domain.Posting{
			ID:       id,
			Title:    title,
			Company:  raw.Query.Company,
			URL:      link,
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}
