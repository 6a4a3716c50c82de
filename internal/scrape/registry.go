package scrape

import (
	"fmt"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/adzuna"
	"jobmonitor-engine/internal/scrape/google"
	"jobmonitor-engine/internal/scrape/greenhouse"
	"jobmonitor-engine/internal/scrape/htmlsite"
	"jobmonitor-engine/internal/scrape/lever"
	"jobmonitor-engine/internal/scrape/remoteok"
	"jobmonitor-engine/internal/scrape/remotive"
	"jobmonitor-engine/internal/scrape/smartrecruiters"
	"jobmonitor-engine/internal/scrape/types"
)

// Registry picks the extractor of a descriptor. HTML is one extractor for
// every site; structured sources are keyed by provider.
type Registry struct {
	HTML       types.Extractor
	Structured map[domain.Provider]types.Extractor
}

func DefaultRegistry() Registry {
	return Registry{
		HTML: htmlsite.Extractor{},
		Structured: map[domain.Provider]types.Extractor{
			domain.ProviderRemoteOK:        remoteok.Extractor{},
			domain.ProviderRemotive:        remotive.Extractor{},
			domain.ProviderAdzuna:          adzuna.Extractor{},
			domain.ProviderGoogle:          google.Extractor{},
			domain.ProviderGreenhouse:      greenhouse.Extractor{},
			domain.ProviderLever:           lever.Extractor{},
			domain.ProviderSmartRecruiters: smartrecruiters.Extractor{},
		},
	}
}

func (r Registry) For(d domain.SourceDescriptor) (types.Extractor, error) {
	switch d.Kind {
	case domain.KindHTML:
		if r.HTML != nil {
			return r.HTML, nil
		}
	case domain.KindStructured:
		if ext, ok := r.Structured[d.Provider]; ok {
			return ext, nil
		}
	}
	return nil, fmt.Errorf("no extractor for %s source %q (provider %q)", d.Kind, d.ID, d.Provider)
}
