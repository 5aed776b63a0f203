package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"go.uber.org/zap"

	"listado-engine/internal/aggregate"
	"listado-engine/internal/config"
	"listado-engine/internal/events"
	"listado-engine/internal/search"
)

type Deps struct {
	DB  *sql.DB
	Log *zap.SugaredLogger

	Hub *events.Hub

	Engine *aggregate.Engine
	Search *search.Client

	// Atomic stores
	CfgVal        *atomic.Value // stores config.Config
	CollectStatus *atomic.Value // stores httpapi.CollectStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Collection entrypoint (injected for testability)
	RunCollect func(ctx context.Context, cfg config.Config) (stored int, err error)
}
