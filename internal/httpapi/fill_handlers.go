package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"listado-engine/internal/aggregate"
	"listado-engine/internal/domain"
	"listado-engine/internal/events"
	"listado-engine/internal/store"
)

type FillHandler struct {
	Engine *aggregate.Engine
	DB     *sql.DB
	Hub    *events.Hub
}

type fillReq struct {
	Categories []string `json:"categories,omitempty"`
	Areas      []string `json:"areas,omitempty"`
	Location   string   `json:"location"`
	MinPer     int      `json:"min_per"`
	SafeOnly   *bool    `json:"safe_only,omitempty"`
}

func (req fillReq) safeOnly() bool {
	if req.SafeOnly == nil {
		return true
	}
	return *req.SafeOnly
}

func (h FillHandler) Categories(w http.ResponseWriter, r *http.Request) {
	var req fillReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.Categories) == 0 {
		writeError(w, r, http.StatusBadRequest, "missing_categories", "categories is required")
		return
	}

	buckets := h.Engine.FillByCategory(r.Context(), req.Categories, req.Location, req.MinPer, req.safeOnly())
	stored := h.persist(buckets)

	h.Hub.Publish(events.Make(RequestIDFrom(r.Context()), events.TypeFillDone, map[string]any{
		"categories": req.Categories,
		"stored":     stored,
	}))
	writeJSON(w, map[string]any{"buckets": buckets, "stored": stored})
}

func (h FillHandler) Areas(w http.ResponseWriter, r *http.Request) {
	var req fillReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.Areas) == 0 {
		writeError(w, r, http.StatusBadRequest, "missing_areas", "areas is required")
		return
	}

	buckets := h.Engine.FillByArea(r.Context(), req.Areas, req.Location, req.MinPer, req.safeOnly())
	stored := h.persist(buckets)

	h.Hub.Publish(events.Make(RequestIDFrom(r.Context()), events.TypeFillDone, map[string]any{
		"areas":  req.Areas,
		"stored": stored,
	}))
	writeJSON(w, map[string]any{"buckets": buckets, "stored": stored})
}

func (h FillHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	writeJSON(w, map[string]any{"fills": h.Engine.FillHistory(limit)})
}

func (h FillHandler) persist(buckets map[string][]domain.Listing) int {
	if h.DB == nil {
		return 0
	}
	var all []domain.Listing
	for _, items := range buckets {
		all = append(all, items...)
	}
	stored, err := store.StoreListings(h.DB, all)
	if err != nil {
		// persistence is best-effort; the response still carries the buckets
		return stored
	}
	return stored
}
