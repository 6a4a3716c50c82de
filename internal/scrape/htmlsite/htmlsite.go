// Package htmlsite extracts postings from listing pages using the CSS
// selectors of a site's configuration.
package htmlsite

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

// SelfSelector makes the job container itself the title/link element.
const SelfSelector = "self"

const (
	DefaultMaxJobs      = 20
	minTitleRunes       = 3
	defaultLinkSelector = "a"
)

var ErrNoContainers = errors.New("no job containers found")

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	if len(bytes.TrimSpace(raw.Payload)) == 0 {
		return nil, types.ErrEmptyPayload
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Payload))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sel, fb := d.Selectors, d.FallbackSelectors

	var containers *goquery.Selection
	if sel.JobContainer != "" {
		containers = doc.Find(sel.JobContainer)
	}
	if (containers == nil || containers.Length() == 0) && fb.JobContainer != "" {
		containers = doc.Find(fb.JobContainer)
	}
	if containers == nil || containers.Length() == 0 {
		return nil, ErrNoContainers
	}

	limit := d.MaxResults
	if limit <= 0 {
		limit = DefaultMaxJobs
	}
	base := raw.Query.URL
	if base == "" {
		base = d.URL
	}
	source := types.SourceName(d, raw.Query)

	seenURLs := map[string]bool{}
	var out []domain.Posting
	containers.EachWithBreak(func(i int, c *goquery.Selection) bool {
		if i >= limit {
			return false
		}

		var title, link string
		if sel.Title == SelfSelector {
			title = util.CleanText(c.Text())
			link = href(c, base)
		} else {
			title = util.CleanText(pick(c, sel.Title, fb.Title).Text())
			linkSel := sel.Link
			if linkSel == "" {
				linkSel = defaultLinkSelector
			}
			link = href(pick(c, linkSel, fb.Link), base)
		}

		// malformed containers are dropped, not fatal
		if utf8.RuneCountInString(title) < minTitleRunes || link == "" {
			return true
		}
		if seenURLs[link] {
			return true
		}
		seenURLs[link] = true

		var company string
		if sel.Company != "" {
			company = util.CleanText(pick(c, sel.Company, fb.Company).Text())
		}

		out = append(out, domain.Posting{
			ID:       util.PostingID("", "", link),
			Title:    title,
			Company:  company,
			URL:      link,
			SourceID: d.ID,
			Source:   source,
		})
		return true
	})
	return out, nil
}

// pick finds the first match of sel inside c, then of fallback. The result
// may be an empty selection.
func pick(c *goquery.Selection, sel, fallback string) *goquery.Selection {
	if sel == SelfSelector {
		return c
	}
	var s *goquery.Selection
	if sel != "" {
		s = c.Find(sel).First()
	}
	if (s == nil || s.Length() == 0) && fallback != "" {
		s = c.Find(fallback).First()
	}
	if s == nil {
		return c.Slice(0, 0)
	}
	return s
}

// href resolves the link of s: its own href, or the first anchor inside it.
func href(s *goquery.Selection, base string) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	h, ok := s.Attr("href")
	if !ok {
		h, ok = s.Find("a[href]").First().Attr("href")
	}
	if !ok {
		return ""
	}
	return util.ResolveURL(base, h)
}
