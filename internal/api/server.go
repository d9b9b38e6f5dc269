// Package api is the read-only HTTP surface: run status and artifact
// inspection backed by the checkpoint store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"overseer/internal/observability"
	"overseer/internal/store"
)

type Server struct {
	addr        string
	checkpoints *store.CheckpointStore
	logger      *observability.Logger
	httpServer  *http.Server
}

func NewServer(addr string, checkpoints *store.CheckpointStore, logger *observability.Logger) *Server {
	s := &Server{addr: addr, checkpoints: checkpoints, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/artifacts", s.handleListArtifacts)
	mux.HandleFunc("GET /runs/{id}/artifacts/{path...}", s.handleGetArtifact)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("api listening on %s", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	phase, task, iteration, lastHB := observability.GetStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"phase":          phase,
		"active_task":    task,
		"iteration":      iteration,
		"last_heartbeat": lastHB,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.checkpoints.ListRuns(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	state, err := s.checkpoints.Load(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":              state.ID,
		"objective":       state.Objective,
		"status":          state.Status,
		"failure_reason":  state.FailureReason,
		"iteration_count": state.IterationCount,
		"max_iterations":  state.MaxIterations,
		"tasks":           state.Tasks.All(),
		"final_result":    state.FinalResult,
	})
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	state, err := s.checkpoints.Load(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	artifacts := state.Store.List()
	// Strip content from the index; fetch individually for bodies.
	for i := range artifacts {
		artifacts[i].Content = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": artifacts})
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	state, err := s.checkpoints.Load(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	art, ok := state.Store.Get(r.PathValue("path"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("artifact not found"))
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
