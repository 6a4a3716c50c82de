package remoteok

import (
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

const APIURL = "https://remoteok.com/api"

// The feed is a JSON array whose first element is a legal notice without a
// position; it falls out with the other incomplete entries.
type posting struct {
	ID       util.FlexString `json:"id"`
	Position string          `json:"position"`
	Company  string          `json:"company"`
	URL      string          `json:"url"`
}

func Queries() []domain.Query {
	return []domain.Query{{URL: APIURL, Label: "remoteok"}}
}

type Extractor struct{}

func (Extractor) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	var items []posting
	if err := types.DecodeJSON(raw.Payload, &items); err != nil {
		return nil, err
	}

	out := make([]domain.Posting, 0, len(items))
	for _, it := range items {
		title := util.CleanText(it.Position)
		link := strings.TrimSpace(it.URL)
		if title == "" || link == "" {
			continue
		}
		out = append(out, domain.Posting{
			ID:       util.PostingID(string(domain.ProviderRemoteOK), it.ID.String(), link),
			Title:    title,
			Company:  util.CleanText(it.Company),
			URL:      link,
			SourceID: d.ID,
			Source:   types.SourceName(d, raw.Query),
		})
	}
	return util.Cap(out, d.MaxResults), nil
}
