package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"listado-engine/internal/config"
	"listado-engine/internal/events"
)

type CollectHandler struct {
	CfgVal        *atomic.Value // config.Config
	CollectStatus *atomic.Value // httpapi.CollectStatus
	Hub           *events.Hub
	RunCollect    func(ctx context.Context, cfg config.Config) (stored int, err error)

	// running is the mutual-exclusion guard; CollectStatus.Running only
	// mirrors it for the status endpoint.
	running *atomic.Bool
}

func (h CollectHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.CollectStatus.Load().(CollectStatus)
	writeJSON(w, st)
}

func (h CollectHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.running.CompareAndSwap(false, true) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	st := h.CollectStatus.Load().(CollectStatus)
	h.CollectStatus.Store(CollectStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	go func() {
		defer h.running.Store(false)

		cfg := h.CfgVal.Load().(config.Config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		stored, err := h.RunCollect(ctx, cfg)

		now := time.Now().Format(time.RFC3339)
		next := h.CollectStatus.Load().(CollectStatus)
		next.Running = false
		next.LastRunAt = now
		next.LastStored = stored
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.CollectStatus.Store(next)

		h.Hub.Publish(events.Make("", events.TypeCollectDone, map[string]any{"stored": stored}))
	}()

	writeJSON(w, map[string]any{"ok": true})
}
