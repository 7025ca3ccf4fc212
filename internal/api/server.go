// Package api provides the HTTP session API: remote rollout workers
// create environment sessions and drive them over JSON reset/step
// calls. Each session owns one single-threaded environment instance;
// calls within a session are serialized by a per-session lock.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ssandler/econgym/internal/config"
	"github.com/ssandler/econgym/internal/env"
)

// Server serves environment sessions over HTTP.
type Server struct {
	Port int
	// MaxSessions bounds concurrently live sessions. Zero means 64.
	MaxSessions int

	mu       sync.Mutex
	sessions map[string]*session
	limiter  *RateLimiter
}

type session struct {
	mu      sync.Mutex
	envName string
	env     env.Multi
	created time.Time
	steps   int
}

// Handler builds the route table. Exposed for tests. Session state and
// the rate limiter are created once and shared across calls.
func (s *Server) Handler() http.Handler {
	if s.sessions == nil {
		s.sessions = make(map[string]*session)
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(120, time.Minute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/envs", s.handleEnvs)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/sessions", RateLimitMiddleware(s.limiter, s.handleCreate))
	mux.HandleFunc("POST /api/v1/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /api/v1/sessions/{id}/step", s.handleStep)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDelete)
	return mux
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	handler := s.Handler()
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP session API starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleEnvs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"envs": []string{"capital", "townsend", "diffdemand", "durable"},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": n})
}

// CreateRequest selects and configures an environment for a session.
// Unset fields fall back to the environment defaults.
type CreateRequest struct {
	Env  string `json:"env"`
	Mode string `json:"mode"`
	Seed uint64 `json:"seed"`
}

// SpaceInfo is the JSON view of an action or observation space. Box
// bounds are nullable: an unbounded entry marshals as null, since JSON
// has no representation for infinities.
type SpaceInfo struct {
	Type string     `json:"type"`
	Low  []*float64 `json:"low,omitempty"`
	High []*float64 `json:"high,omitempty"`
	N    []int      `json:"n,omitempty"`
}

// jsonBounds maps bound entries to pointers, with null for infinities.
func jsonBounds(bounds []float64) []*float64 {
	out := make([]*float64, len(bounds))
	for i, b := range bounds {
		if math.IsInf(b, 0) {
			continue
		}
		v := b
		out[i] = &v
	}
	return out
}

func spaceInfo(sp env.Space) SpaceInfo {
	switch sp.Type {
	case env.Discrete:
		return SpaceInfo{Type: "discrete", N: sp.N}
	case env.MultiDiscrete:
		return SpaceInfo{Type: "multi_discrete", N: sp.N}
	default:
		return SpaceInfo{Type: "box", Low: jsonBounds(sp.Low), High: jsonBounds(sp.High)}
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	exp := config.Default()
	if req.Env != "" {
		exp.Env = req.Env
	}
	exp.Mode = req.Mode
	exp.Seed = req.Seed

	e, err := exp.Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	max := s.MaxSessions
	if max == 0 {
		max = 64
	}

	s.mu.Lock()
	if len(s.sessions) >= max {
		s.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "session limit reached")
		return
	}
	id := uuid.NewString()
	s.sessions[id] = &session{envName: exp.Env, env: e, created: time.Now()}
	s.mu.Unlock()

	agents := e.Agents()
	actionSpaces := make(map[string]SpaceInfo, len(agents))
	obsSpaces := make(map[string]SpaceInfo, len(agents))
	for _, a := range agents {
		actionSpaces[a] = spaceInfo(e.ActionSpace(a))
		obsSpaces[a] = spaceInfo(e.ObservationSpace(a))
	}

	slog.Info("session created", "id", id, "env", exp.Env, "agents", len(agents))
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id":         id,
		"env":                exp.Env,
		"agents":             agents,
		"action_spaces":      actionSpaces,
		"observation_spaces": obsSpaces,
	})
}

func (s *Server) lookup(r *http.Request) (*session, string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	return sess, id, ok
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	sess.mu.Lock()
	obs := sess.env.Reset()
	sess.steps = 0
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"observations": obs})
}

// StepRequest carries the per-agent actions for one period.
type StepRequest struct {
	Actions map[string][]float64 `json:"actions"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, a := range sess.env.Agents() {
		act, ok := req.Actions[a]
		if !ok || !sess.env.ActionSpace(a).Contains(act) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid action for %s", a))
			return
		}
	}

	sess.mu.Lock()
	obs, rewards, done, info := sess.env.Step(req.Actions)
	sess.steps++
	steps := sess.steps
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"observations": obs,
		"rewards":      rewards,
		"done":         done,
		"info":         info,
		"steps":        steps,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	_, id, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	slog.Info("session closed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
