package httpapi

import (
	"net/http"
	"sync/atomic"
)

// NewMux returns the raw mux so main() can attach anything that needs the
// server handle (shutdown endpoint and so on).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Search
	sh := SearchHandler{Engine: d.Engine, Search: d.Search, CfgVal: d.CfgVal}
	mux.HandleFunc("/search", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Query,
	}))
	mux.HandleFunc("/search/web", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Web,
	}))
	mux.HandleFunc("/provider/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.ProviderStatus,
	}))

	// Quota fills
	fh := FillHandler{Engine: d.Engine, DB: d.DB, Hub: d.Hub}
	mux.HandleFunc("/fill/categories", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: fh.Categories,
	}))
	mux.HandleFunc("/fill/areas", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: fh.Areas,
	}))
	mux.HandleFunc("/fill/history", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: fh.History,
	}))

	// Stored listings
	lh := ListingsHandler{DB: d.DB}
	mux.HandleFunc("/listings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))

	// Alert subscriptions
	ah := AlertsHandler{DB: d.DB}
	mux.HandleFunc("/alerts", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ah.List,
		http.MethodPost: ah.Subscribe,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// Secrets (reads cfgVal, not a startup snapshot)
	sec := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/secrets/provider", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sec.SetProviderKey,
	}))

	// Collection
	coll := CollectHandler{
		CfgVal:        d.CfgVal,
		CollectStatus: d.CollectStatus,
		Hub:           d.Hub,
		RunCollect:    d.RunCollect,
		running:       new(atomic.Bool),
	}
	mux.HandleFunc("/collect/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: coll.Status,
	}))
	mux.HandleFunc("/collect/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: coll.Run,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health + maintenance
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))
	dbh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dbh.Checkpoint,
	}))

	return mux
}
