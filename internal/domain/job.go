package domain

import "time"

// Posting is one normalized job listing. It is immutable once extracted.
type Posting struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	URL      string `json:"url"`
	SourceID string `json:"source_id"`
	Source   string `json:"source"` // display name, e.g. "Google-Wellfound"
}

type SourceKind string

const (
	KindHTML       SourceKind = "html"
	KindStructured SourceKind = "structured"
)

// Provider identifies a structured search API.
type Provider string

const (
	ProviderRemoteOK Provider = "remoteok"
	ProviderRemotive Provider = "remotive"
	ProviderAdzuna   Provider = "adzuna"
	ProviderGoogle   Provider = "google"

	ProviderGreenhouse      Provider = "greenhouse"
	ProviderLever           Provider = "lever"
	ProviderSmartRecruiters Provider = "smartrecruiters"
)

type Selectors struct {
	JobContainer string `yaml:"job_container" json:"job_container"`
	Title        string `yaml:"title" json:"title"`
	Company      string `yaml:"company" json:"company"`
	Link         string `yaml:"link" json:"link"`
}

type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Query is one request a structured source issues. Label is used in logs only
// since the URL may carry credentials.
type Query struct {
	URL   string
	Label string
	// Source overrides the posting display name, e.g. "Google-Wellfound".
	Source string
	// Company and Key carry per-board context for ATS providers
	// (display name and board slug).
	Company string
	Key     string
}

// SourceDescriptor is the static definition of one scrape target. It is
// read-only for the duration of a run.
type SourceDescriptor struct {
	ID       string
	Name     string
	Kind     SourceKind
	Provider Provider // structured only

	URL               string // html only
	Selectors         Selectors
	FallbackSelectors Selectors

	Queries []Query // structured only

	Enabled    bool
	MaxResults int
	RateLimit  RateLimit
}

// Targets returns the URLs a descriptor fetches, in order.
func (d SourceDescriptor) Targets() []Query {
	if d.Kind == KindHTML {
		return []Query{{URL: d.URL, Label: d.ID, Source: d.Name}}
	}
	return d.Queries
}

type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailure FetchStatus = "failure"
)

// RawFetchResult is the outcome of fetching one target URL.
type RawFetchResult struct {
	SourceID string
	Query    Query
	Payload  []byte
	Status   FetchStatus
	Attempts int
	Err      *SourceError
}

func (r RawFetchResult) OK() bool { return r.Status == FetchSuccess }
