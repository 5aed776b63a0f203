package events

import (
	"encoding/json"
	"time"
)

// Event types pushed over the SSE stream.
const (
	TypeCollectDone   = "collect.done"
	TypeFillDone      = "fill.done"
	TypeListingStored = "listing.stored"
	TypeConfigUpdated = "config.updated"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Make renders one event as the JSON line the hub distributes.
func Make(reqID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   1,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
