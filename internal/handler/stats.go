package handler

import (
	"net/http"
	"time"

	"github.com/vaporchat/vapor/internal/blob"
	"github.com/vaporchat/vapor/internal/room"
	"github.com/vaporchat/vapor/internal/store"
	"github.com/vaporchat/vapor/internal/ws"
)

type statsResponse struct {
	Connections int   `json:"connections"`
	Rooms       int   `json:"rooms"`
	Messages    int   `json:"messages"`
	Blobs       int   `json:"blobs"`
	UptimeMs    int64 `json:"uptime_ms"`
}

// Stats reports current process counters. Read-only.
func Stats(hub *ws.Hub, registry *room.Registry, messages *store.Store, blobs *blob.Store, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statsResponse{
			Connections: hub.ConnectionCount(),
			Rooms:       registry.Count(),
			Messages:    messages.Count(),
			Blobs:       blobs.Count(),
			UptimeMs:    time.Since(startedAt).Milliseconds(),
		})
	}
}

// Health is a bare liveness probe.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
