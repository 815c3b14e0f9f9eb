package main

import (
	"fmt"
	"net/http"

	"github.com/coleschaffer/OpenCatan-sub003/internal/persistence/indexdb"
)

// hostMetrics is the part of *host.Host the metrics endpoint reads. All
// methods are safe from any goroutine.
type hostMetrics interface {
	GameID() string
	Version() uint64
	Phase() string
}

type observerCount interface {
	Active() int64
}

// metricsHandler serves a minimal Prometheus exposition. idx and obs may be nil.
func metricsHandler(h hostMetrics, idx *indexdb.SQLiteIndex, obs observerCount) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		id := h.GameID()

		fmt.Fprintf(rw, "# HELP opencatan_game_version Current game state version.\n")
		fmt.Fprintf(rw, "# TYPE opencatan_game_version gauge\n")
		fmt.Fprintf(rw, "opencatan_game_version{game=%q} %d\n", id, h.Version())

		fmt.Fprintf(rw, "# HELP opencatan_game_phase Current phase (1 for the active one).\n")
		fmt.Fprintf(rw, "# TYPE opencatan_game_phase gauge\n")
		fmt.Fprintf(rw, "opencatan_game_phase{game=%q,phase=%q} 1\n", id, h.Phase())

		if obs != nil {
			fmt.Fprintf(rw, "# HELP opencatan_observers Connected spectators.\n")
			fmt.Fprintf(rw, "# TYPE opencatan_observers gauge\n")
			fmt.Fprintf(rw, "opencatan_observers %d\n", obs.Active())
		}

		if idx == nil {
			return
		}
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP opencatan_index_queue_depth Current sqlite index queue depth.\n")
		fmt.Fprintf(rw, "# TYPE opencatan_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "opencatan_index_queue_depth %d\n", s.QueueDepth)

		fmt.Fprintf(rw, "# HELP opencatan_index_queue_capacity Sqlite index queue capacity.\n")
		fmt.Fprintf(rw, "# TYPE opencatan_index_queue_capacity gauge\n")
		fmt.Fprintf(rw, "opencatan_index_queue_capacity %d\n", s.QueueCapacity)

		fmt.Fprintf(rw, "# HELP opencatan_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE opencatan_index_dropped_total counter\n")
		fmt.Fprintf(rw, "opencatan_index_dropped_total{kind=%q} %d\n", "action", s.DropActionTotal)
		fmt.Fprintf(rw, "opencatan_index_dropped_total{kind=%q} %d\n", "audit", s.DropAuditTotal)
		fmt.Fprintf(rw, "opencatan_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
	}
}
