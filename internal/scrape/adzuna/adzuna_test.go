package adzuna

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmonitor-engine/internal/domain"
)

func TestQueriesCountriesTimesKeywords(t *testing.T) {
	qs := Queries(Config{
		AppID: "id", AppKey: "key",
		Countries: []string{"us", "GB"},
		Keywords:  []string{"react", "react native", "mobile", "ios"},
	})
	require.Len(t, qs, 2*MaxKeywords)

	u, err := url.Parse(qs[1].URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/api/jobs/us/search/1", u.Path)
	assert.Equal(t, "react native", u.Query().Get("what"))
	assert.Equal(t, "20", u.Query().Get("results_per_page"))
	assert.NotContains(t, qs[1].Label, "key")
	assert.Contains(t, qs[3].URL, "/gb/")
}

func TestExtract(t *testing.T) {
	body := `{"results":[
	  {"id":"4411","title":"React Native Developer","redirect_url":"https://adzuna.com/land/4411","company":{"display_name":"Acme"}},
	  {"id":"4412","title":"","redirect_url":"https://adzuna.com/land/4412"}
	]}`
	d := domain.SourceDescriptor{ID: "adzuna", Name: "Adzuna"}
	got, err := Extractor{}.Extract(d, domain.RawFetchResult{Payload: []byte(body)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "adzuna:4411", got[0].ID)
	assert.Equal(t, "Acme", got[0].Company)
}

func TestExtractAPIError(t *testing.T) {
	d := domain.SourceDescriptor{ID: "adzuna"}
	_, err := Extractor{}.Extract(d, domain.RawFetchResult{Payload: []byte(`{"exception":"AUTH_FAIL","display":"Authorisation failed"}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_FAIL")
}
