// Copyright 2025 James Ross
// Package adminapi exposes read/purge HTTP introspection over the queue's
// key schema: per-consumer processing/unacked lengths and the registered
// consumer set. Source queue sizes are reported by Stats when it is given
// queue names; the /stats endpoint passes none and does not report them.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/flyingrobots/orizuru/internal/keys"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *Server {
	return &Server{rdb: rdb, log: log}
}

// Router builds the gorilla/mux router exposing the admin endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/peek/{queue}", s.handlePeek).Methods(http.MethodGet)
	r.HandleFunc("/purge/{queue}", s.handlePurge).Methods(http.MethodPost)
	return r
}

type ConsumerStats struct {
	Name       string `json:"name"`
	Processing int64  `json:"processing"`
	Unacked    int64  `json:"unacked"`
}

type StatsResult struct {
	SourceQueueSizes map[string]int64 `json:"source_queue_sizes,omitempty"`
	Consumers        []ConsumerStats  `json:"consumers"`
}

// Stats reports the state of every registered consumer. sourceQueues lets
// callers also report arbitrary producer-side queue lengths by name.
func Stats(ctx context.Context, rdb *redis.Client, sourceQueues []string) (StatsResult, error) {
	res := StatsResult{SourceQueueSizes: map[string]int64{}}
	for _, q := range sourceQueues {
		n, err := rdb.LLen(ctx, q).Result()
		if err != nil {
			return res, err
		}
		res.SourceQueueSizes[q] = n
	}

	names, err := rdb.SMembers(ctx, keys.Registry).Result()
	if err != nil {
		return res, err
	}
	for _, name := range names {
		proc, err := rdb.LLen(ctx, keys.Processing(name)).Result()
		if err != nil {
			return res, err
		}
		unacked, err := rdb.LLen(ctx, keys.Unacked(name)).Result()
		if err != nil {
			return res, err
		}
		res.Consumers = append(res.Consumers, ConsumerStats{Name: name, Processing: proc, Unacked: unacked})
	}
	return res, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	res, err := Stats(r.Context(), s.rdb, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// Peek returns up to n raw payloads sitting at the tail of queue (the next
// ones to be claimed), without removing them.
func Peek(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	return rdb.LRange(ctx, queue, -n, -1).Result()
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	queue := mux.Vars(r)["queue"]
	n := int64(10)
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			n = parsed
		}
	}
	items, err := Peek(r.Context(), s.rdb, queue, n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, items)
}

// Purge deletes queue outright. A destructive utility endpoint, not part
// of the delivery guarantee.
func Purge(ctx context.Context, rdb *redis.Client, queue string) error {
	return rdb.Del(ctx, queue).Err()
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	queue := mux.Vars(r)["queue"]
	if err := Purge(r.Context(), s.rdb, queue); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
