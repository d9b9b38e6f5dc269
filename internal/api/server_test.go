package api

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"overseer/internal/agent"
	"overseer/internal/store"
	"overseer/internal/task"
	"overseer/internal/vfs"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	checkpoints, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { checkpoints.Close() })

	tasks := task.NewList()
	tasks.Append([]task.Record{{Description: "write notes"}})
	_ = tasks.MarkCompleted(1, "done", []string{"notes/today.md"})
	artifacts := vfs.NewStore()
	artifacts.Write("notes/today.md", "remember the milk", 1)

	if err := checkpoints.Save(&agent.RunState{
		ID:        "run-api",
		Objective: "take notes",
		Tasks:     tasks,
		Store:     artifacts,
		Status:    agent.RunStatusDone,
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	return NewServer(":0", checkpoints, nil)
}

func get(t *testing.T, s *Server, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	code, body := get(t, s, "/health")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGetRun(t *testing.T) {
	s := newTestServer(t)
	code, body := get(t, s, "/runs/run-api")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	var resp struct {
		Status string `json:"status"`
		Tasks  []struct {
			Description string `json:"description"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp.Status != "done" || len(resp.Tasks) != 1 {
		t.Errorf("unexpected response: %s", body)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t)
	if code, _ := get(t, s, "/runs/nope"); code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestArtifactEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := get(t, s, "/runs/run-api/artifacts")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(body, "notes/today.md") {
		t.Errorf("index missing artifact: %s", body)
	}
	if strings.Contains(body, "remember the milk") {
		t.Errorf("index must not include content: %s", body)
	}

	code, body = get(t, s, "/runs/run-api/artifacts/notes/today.md")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	if !strings.Contains(body, "remember the milk") {
		t.Errorf("artifact body missing content: %s", body)
	}

	if code, _ := get(t, s, "/runs/run-api/artifacts/missing.txt"); code != 404 {
		t.Fatalf("expected 404 for unknown artifact, got %d", code)
	}
}
