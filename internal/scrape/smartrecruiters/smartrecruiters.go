package smartrecruiters

import (
	"fmt"
	"net/url"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

// pageLimit is the largest page the public API serves.
const pageLimit = 100

type Config struct {
	Companies []Company
}

type Company struct {
	// Slug is the SmartRecruiters company identifier used in URLs, e.g.
	// https://jobs.smartrecruiters.com/<slug>
	Slug string
	Name string
}

// Response schema (public API) is typically:
// { "content": [...], "totalFound": N, "offset": O, "limit": L }
// but we defensively parse only what we need.
type postingsResponse struct {
	Content []posting `json:"content"`
}

type posting struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

// Queries requests the first page of each company; maxResults bounds the page size.
func Queries(cfg Config, maxResults int) []domain.Query {
	limit := maxResults
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}
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
			URL:     fmt.Sprintf("https://api.smartrecruiters.com/v1/companies/%s/postings?limit=%d&offset=0", url.PathEscape(slug), limit),
			Label:   "smartrecruiters " + slug,
			Company: name,
			Key:     slug,
		})
	}
	return out
}

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	var pr postingsResponse
	if err := types.DecodeJSON(raw.Payload, &pr); err != nil {
		return nil, err
	}

	slug := raw.Query.Key
	out := make([]domain.Posting, 0, len(pr.Content))
	for _, p := range pr.Content {
		title := util.CleanText(p.Name)
		id := strings.TrimSpace(firstNonEmpty(p.ID, p.UUID, p.Ref))
		if title == "" || id == "" {
			continue
		}
		jobURL := fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", url.PathEscape(slug), url.PathEscape(id))
		out = append(out, domain.Posting{
			ID:       util.PostingID("smartrecruiters", slug+":"+id, jobURL),
			Title:    title,
			Company:  raw.Query.Company,
			URL:      jobURL,
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
