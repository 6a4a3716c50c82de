package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"jobmonitor-engine/internal/domain"
)

const (
	SitesFile  = "sites_config.yaml"
	SearchFile = "google_search_sites.yaml"
)

// Duration wraps time.Duration for YAML values like "2s" or "1m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

type RateLimit struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

func (r RateLimit) toDomain() domain.RateLimit {
	return domain.RateLimit{Requests: r.Requests, Window: r.Window.Duration}
}

// Request holds the fetch policy. Delays and timeouts are in seconds.
type Request struct {
	Timeout         float64   `yaml:"timeout"`
	MaxRetries      int       `yaml:"max_retries"`
	RetryBaseDelay  float64   `yaml:"retry_base_delay"`
	RetryMaxDelay   float64   `yaml:"retry_max_delay"`
	Jitter          float64   `yaml:"jitter"`
	ConcurrentLimit int       `yaml:"concurrent_limit"`
	RunTimeout      float64   `yaml:"run_timeout"`
	RateLimit       RateLimit `yaml:"rate_limit"`
}

func Seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

type Site struct {
	Key               string           `yaml:"-"`
	Name              string           `yaml:"name"`
	Type              string           `yaml:"type"`
	URL               string           `yaml:"url"`
	Enabled           *bool            `yaml:"enabled"`
	MaxJobs           int              `yaml:"max_jobs"`
	Selectors         domain.Selectors `yaml:"selectors"`
	FallbackSelectors domain.Selectors `yaml:"fallback_selectors"`
	RateLimit         RateLimit        `yaml:"rate_limit"`
}

// IsEnabled treats a missing flag as enabled.
func (s Site) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// Sites keeps the order the sites appear in the YAML mapping.
type Sites []Site

func (s *Sites) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sites must be a mapping of id to site", value.Line)
	}
	out := make(Sites, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var site Site
		if err := value.Content[i+1].Decode(&site); err != nil {
			return fmt.Errorf("sites.%s: %w", value.Content[i].Value, err)
		}
		site.Key = value.Content[i].Value
		out = append(out, site)
	}
	*s = out
	return nil
}

type APISource struct {
	Enabled    bool      `yaml:"enabled"`
	MaxResults int       `yaml:"max_results"`
	RateLimit  RateLimit `yaml:"rate_limit"`
}

type Company struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

type ATSSource struct {
	APISource `yaml:",inline"`
	Companies []Company `yaml:"companies"`
}

type Config struct {
	Request Request `yaml:"request"`

	RemoteOK APISource `yaml:"remoteok"`
	Remotive struct {
		APISource  `yaml:",inline"`
		Categories []string `yaml:"categories"`
	} `yaml:"remotive"`
	Adzuna struct {
		APISource      `yaml:",inline"`
		Countries      []string `yaml:"countries"`
		ResultsPerPage int      `yaml:"results_per_page"`
	} `yaml:"adzuna"`
	ATS struct {
		Greenhouse      ATSSource `yaml:"greenhouse"`
		Lever           ATSSource `yaml:"lever"`
		SmartRecruiters ATSSource `yaml:"smartrecruiters"`
	} `yaml:"ats"`

	Sites Sites `yaml:"sites"`

	Ledger struct {
		Backend string `yaml:"backend"` // json | sqlite
		Path    string `yaml:"path"`
	} `yaml:"ledger"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	// Loaded from SearchFile, not from the sites file.
	Search Search `yaml:"-"`
	// Loaded from the environment / keyring.
	Env Env `yaml:"-"`
}

type Search struct {
	Settings struct {
		Enabled            bool      `yaml:"enabled"`
		MaxResultsPerQuery int       `yaml:"max_results_per_query"`
		DateRestrict       string    `yaml:"date_restrict"`
		RateLimit          RateLimit `yaml:"rate_limit"`
	} `yaml:"settings"`
	Keywords []string     `yaml:"keywords"`
	Sites    []SearchSite `yaml:"sites"`
}

type SearchSite struct {
	Domain string `yaml:"domain"`
	Name   string `yaml:"name"`
}

func Default() Config {
	var cfg Config
	cfg.Request = Request{
		Timeout:         15,
		MaxRetries:      3,
		RetryBaseDelay:  1,
		RetryMaxDelay:   10,
		Jitter:          0.2,
		ConcurrentLimit: 10,
		RunTimeout:      300,
	}
	cfg.RemoteOK = APISource{Enabled: true, MaxResults: 50}
	cfg.Remotive.APISource = APISource{Enabled: true, MaxResults: 30}
	cfg.Adzuna.APISource = APISource{Enabled: true, MaxResults: 50}
	cfg.Adzuna.Countries = []string{"us"}
	cfg.Adzuna.ResultsPerPage = 20
	cfg.Ledger.Backend = "json"
	cfg.Ledger.Path = "seen_jobs.json"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Search.Settings.MaxResultsPerQuery = 10
	cfg.Search.Settings.DateRestrict = "w1"
	return cfg
}

// Load reads both YAML files from dir on top of Default, then the
// environment. A missing file keeps the defaults; a malformed one is a
// config error.
func Load(dir string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if err := decodeFile(filepath.Join(dir, SitesFile), &cfg); err != nil {
		return cfg, err
	}
	if err := decodeFile(filepath.Join(dir, SearchFile), &cfg.Search); err != nil {
		return cfg, err
	}
	if cfg.Ledger.Path != "" && !filepath.IsAbs(cfg.Ledger.Path) {
		cfg.Ledger.Path = filepath.Join(dir, cfg.Ledger.Path)
	}

	cfg.Env = LoadEnv(lookup)
	return cfg, nil
}

func decodeFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return domain.ConfigErrorf("read %s: %v", path, err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return domain.ConfigErrorf("parse %s: %v", path, err)
	}
	return nil
}
