package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skirmish.gg/internal/persistence/r2s3"
	"skirmish.gg/internal/protocol"
	"skirmish.gg/internal/sim/arena"
	"skirmish.gg/internal/transport/observer"
	"skirmish.gg/internal/transport/ws"
)

func newMux(w *arena.World, idx runtimeIndex, archive *r2s3.Mirror, serverID string, enableAdminHTTP bool, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		select {
		case <-w.Done():
			http.Error(rw, "stopped", http.StatusServiceUnavailable)
			return
		default:
		}
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, idx, archive, serverID))

	if enableAdminHTTP {
		// Local-only admin endpoints (read-only, do not affect the simulation).
		mux.HandleFunc("/admin/v1/state", loopbackOnly(stateHandler(w, serverID)))
		mux.HandleFunc("/admin/v1/leaderboard", loopbackOnly(leaderboardHandler(idx)))
		mux.HandleFunc("/admin/v1/observer/ws", observer.NewServer(w, serverID, logger).WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (SK_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	return mux
}

func metricsHandler(w *arena.World, idx runtimeIndex, archive *r2s3.Mirror, serverID string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP skirmish_world_tick Current simulation tick.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_tick gauge\n")
		fmt.Fprintf(rw, "skirmish_world_tick{server=%q} %d\n", serverID, m.Tick)

		fmt.Fprintf(rw, "# HELP skirmish_world_players Current number of players.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_players gauge\n")
		fmt.Fprintf(rw, "skirmish_world_players{server=%q,state=%q} %d\n", serverID, "alive", m.Alive)
		fmt.Fprintf(rw, "skirmish_world_players{server=%q,state=%q} %d\n", serverID, "dead", m.Players-m.Alive)

		fmt.Fprintf(rw, "# HELP skirmish_world_projectiles Projectiles in flight.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_projectiles gauge\n")
		fmt.Fprintf(rw, "skirmish_world_projectiles{server=%q} %d\n", serverID, m.Projectiles)

		fmt.Fprintf(rw, "# HELP skirmish_world_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_clients gauge\n")
		fmt.Fprintf(rw, "skirmish_world_clients{server=%q} %d\n", serverID, m.Clients)

		fmt.Fprintf(rw, "# HELP skirmish_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "skirmish_world_queue_depth{server=%q,queue=%q} %d\n", serverID, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "skirmish_world_queue_depth{server=%q,queue=%q} %d\n", serverID, "connect", m.QueueDepths.Connect)
		fmt.Fprintf(rw, "skirmish_world_queue_depth{server=%q,queue=%q} %d\n", serverID, "disconnect", m.QueueDepths.Disconnect)

		fmt.Fprintf(rw, "# HELP skirmish_world_step_ms Last step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_step_ms gauge\n")
		fmt.Fprintf(rw, "skirmish_world_step_ms{server=%q} %.3f\n", serverID, m.StepMS)

		fmt.Fprintf(rw, "# HELP skirmish_world_events_total Combat and runtime counters.\n")
		fmt.Fprintf(rw, "# TYPE skirmish_world_events_total counter\n")
		fmt.Fprintf(rw, "skirmish_world_events_total{server=%q,kind=%q} %d\n", serverID, "shot", m.ShotsTotal)
		fmt.Fprintf(rw, "skirmish_world_events_total{server=%q,kind=%q} %d\n", serverID, "hit", m.HitsTotal)
		fmt.Fprintf(rw, "skirmish_world_events_total{server=%q,kind=%q} %d\n", serverID, "kill", m.KillsTotal)
		fmt.Fprintf(rw, "skirmish_world_events_total{server=%q,kind=%q} %d\n", serverID, "step_overrun", m.Overruns)
		fmt.Fprintf(rw, "skirmish_world_events_total{server=%q,kind=%q} %d\n", serverID, "broadcast", m.BroadcastsTotal)
		fmt.Fprintf(rw, "skirmish_world_events_total{server=%q,kind=%q} %d\n", serverID, "dropped_frame", m.DroppedFrames)

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP skirmish_index_queue_depth Combat index queue depth.\n")
			fmt.Fprintf(rw, "# TYPE skirmish_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "skirmish_index_queue_depth{server=%q} %d\n", serverID, s.QueueDepth)
			fmt.Fprintf(rw, "# HELP skirmish_index_dropped_total Combat index entries dropped on a full queue.\n")
			fmt.Fprintf(rw, "# TYPE skirmish_index_dropped_total counter\n")
			fmt.Fprintf(rw, "skirmish_index_dropped_total{server=%q} %d\n", serverID, s.DropTickTotal)
		}

		if archive != nil {
			s := archive.Stats()
			fmt.Fprintf(rw, "# HELP skirmish_archive_queue_depth Combat log files waiting for upload.\n")
			fmt.Fprintf(rw, "# TYPE skirmish_archive_queue_depth gauge\n")
			fmt.Fprintf(rw, "skirmish_archive_queue_depth{server=%q} %d\n", serverID, s.QueueDepth)
			fmt.Fprintf(rw, "# HELP skirmish_archive_uploads_total Combat log uploads by result.\n")
			fmt.Fprintf(rw, "# TYPE skirmish_archive_uploads_total counter\n")
			fmt.Fprintf(rw, "skirmish_archive_uploads_total{server=%q,result=%q} %d\n", serverID, "ok", s.UploadSuccessTotal)
			fmt.Fprintf(rw, "skirmish_archive_uploads_total{server=%q,result=%q} %d\n", serverID, "fail", s.UploadFailTotal)
			fmt.Fprintf(rw, "skirmish_archive_uploads_total{server=%q,result=%q} %d\n", serverID, "dropped", s.DroppedTotal)
		}
	}
}

func stateHandler(w *arena.World, serverID string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := struct {
			ServerID string                `json:"server_id"`
			World    protocol.WorldParams  `json:"world"`
			Metrics  arena.WorldMetrics    `json:"metrics"`
			Snapshot *protocol.SnapshotMsg `json:"snapshot,omitempty"`
		}{
			ServerID: serverID,
			World:    w.Params(),
			Metrics:  w.Metrics(),
		}
		if snap, err := w.RequestSnapshot(ctx); err == nil {
			resp.Snapshot = &snap
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func leaderboardHandler(idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		lb, ok := idx.(leaderboard)
		if idx == nil || !ok {
			http.Error(rw, "leaderboard requires SK_INDEX_BACKEND=sqlite", http.StatusNotFound)
			return
		}
		limit := 10
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 1000 {
				http.Error(rw, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		top, err := lb.TopKillers(r.Context(), limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"players": top})
	}
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
