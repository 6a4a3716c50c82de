// Package google queries the Custom Search JSON API for postings on job
// boards that have no API of their own.
package google

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

const APIURL = "https://www.googleapis.com/customsearch/v1"

// MaxNum is the largest page size the API accepts.
const MaxNum = 10

type Site struct {
	Domain string
	Name   string
}

type Config struct {
	APIKey       string
	CSEID        string
	Keywords     []string
	Sites        []Site
	Num          int
	DateRestrict string // already clamped by config
}

type response struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Queries builds one query per site × keyword.
func Queries(cfg Config) []domain.Query {
	num := cfg.Num
	if num <= 0 || num > MaxNum {
		num = MaxNum
	}

	var out []domain.Query
	for _, s := range cfg.Sites {
		dom := strings.TrimSpace(s.Domain)
		if dom == "" {
			continue
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = dom
		}
		for _, kw := range cfg.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			v := url.Values{}
			v.Set("key", cfg.APIKey)
			v.Set("cx", cfg.CSEID)
			v.Set("q", fmt.Sprintf("%s site:%s remote", kw, dom))
			v.Set("num", strconv.Itoa(num))
			if cfg.DateRestrict != "" {
				v.Set("dateRestrict", cfg.DateRestrict)
			}
			out = append(out, domain.Query{
				URL:    APIURL + "?" + v.Encode(),
				Label:  fmt.Sprintf("google %s %q", dom, kw),
				Source: "Google-" + name,
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
		return nil, fmt.Errorf("api error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	out := make([]domain.Posting, 0, len(resp.Items))
	for _, it := range resp.Items {
		link := strings.TrimSpace(it.Link)
		if strings.TrimSpace(it.Title) == "" || link == "" {
			continue
		}
		title, company := util.SplitTitleCompany(it.Title)
		out = append(out, domain.Posting{
			ID:       util.PostingID("", "", link),
			Title:    title,
			Company:  company,
			URL:      link,
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}
