package httpapi

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/events"
	"jobmonitor-engine/internal/pipeline"
)

// Runs is the part of pipeline.Runner the API drives.
type Runs interface {
	Run(ctx context.Context, opts pipeline.Options) (domain.RunReport, error)
	Last() (domain.RunReport, bool)
}

type Deps struct {
	Hub *events.Hub

	Runs Runs
	// BaseCtx bounds runs triggered over HTTP; they outlive the request.
	BaseCtx context.Context

	// Atomic stores
	CfgVal    *atomic.Value // stores config.Config
	RunStatus *atomic.Value // stores httpapi.RunStatus

	// SetSecret stores a credential in the OS keychain (inject for testability).
	SetSecret func(key, value string) error

	Log zerolog.Logger
}

func (d Deps) config() config.Config {
	if d.CfgVal == nil {
		return config.Config{}
	}
	cfg, _ := d.CfgVal.Load().(config.Config)
	return cfg
}
