package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"listado-engine/internal/store"
)

type ListingsHandler struct {
	DB *sql.DB
}

func (h ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, total, err := store.ListListings(r.Context(), h.DB, store.ListOpts{
		Category: q.Get("category"),
		Location: q.Get("location"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"total": total, "listings": items})
}

type AlertsHandler struct {
	DB *sql.DB
}

func (h AlertsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var profile map[string]any
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := store.SubscribeAlert(h.DB, profile); err != nil {
		if errors.Is(err, store.ErrEmptyProfile) {
			writeError(w, r, http.StatusBadRequest, "empty_profile", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (h AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := store.ListAlerts(r.Context(), h.DB, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"alerts": alerts, "count": len(alerts)})
}
