package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"listado-engine/internal/aggregate"
	"listado-engine/internal/config"
	"listado-engine/internal/rank"
	"listado-engine/internal/search"
)

type SearchHandler struct {
	Engine *aggregate.Engine
	Search *search.Client
	CfgVal *atomic.Value // config.Config
}

type searchReq struct {
	Prompt   string            `json:"prompt"`
	Filters  map[string]string `json:"filters,omitempty"`
	Location string            `json:"location,omitempty"`
}

// Query parses the prompt into filters, collects regional listings and
// returns them ranked against those filters.
func (h SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	cfg := h.CfgVal.Load().(config.Config)

	filters := req.Filters
	if filters == nil {
		filters = aggregate.ParsePrompt(req.Prompt, req.Location, aggregate.PromptVocab{
			Locations:    cfg.Prompt.Locations,
			Fields:       cfg.Prompt.Fields,
			Needs:        cfg.Prompt.Needs,
			Availability: cfg.Prompt.Availability,
		})
	}

	listings := h.Engine.CollectRegion(r.Context(), filters)
	ranked := rank.Rank(listings, filters, nil)

	writeJSON(w, map[string]any{
		"filters":  filters,
		"count":    len(ranked),
		"listings": ranked,
	})
}

// Web runs a boosted query against the external search provider.
func (h SearchHandler) Web(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "missing_query", "q is required")
		return
	}
	topK := queryInt(r, "top_k", 5)

	res := h.Search.SearchBoosted(r.Context(), q, topK, nil, nil)
	writeJSON(w, res)
}

// ProviderStatus reports the monthly quota counter.
func (h SearchHandler) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	period, used, quota := h.Search.Usage()
	writeJSON(w, map[string]any{
		"period": period,
		"used":   used,
		"quota":  quota,
	})
}
