// Package vfs is the virtual artifact store shared by every task in a
// run. Paths are logical filenames; content lives in memory unless a
// checkpoint store persists it. Writes are append-only history: a
// path's version strictly increases and earlier versions are kept.
package vfs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a path has never been written.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one versioned piece of content with provenance.
type Artifact struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	CreatedBy int    `json:"created_by"` // task id, 0 for system writes
	Version   int    `json:"version"`    // per-path, strictly increasing
	Seq       int    `json:"seq"`        // global write ordinal, used for recency ranking
	Size      int    `json:"size"`
}

// Store maps path to latest artifact and keeps full version history.
// The control loop is the only writer and runs tasks one at a time;
// the mutex exists because the HTTP surface reads concurrently.
type Store struct {
	mu      sync.RWMutex
	latest  map[string]*Artifact
	history map[string][]Artifact
	seq     int
}

func NewStore() *Store {
	return &Store{
		latest:  make(map[string]*Artifact),
		history: make(map[string][]Artifact),
	}
}

// Write records content under path, assigning the next version for
// that path. Returns the stored artifact.
func (s *Store) Write(path, content string, taskID int) Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(path, content, taskID)
}

func (s *Store) write(path, content string, taskID int) Artifact {
	version := 1
	if prev, ok := s.latest[path]; ok {
		version = prev.Version + 1
	}
	s.seq++
	art := Artifact{
		Path:      path,
		Content:   content,
		CreatedBy: taskID,
		Version:   version,
		Seq:       s.seq,
		Size:      len(content),
	}
	s.latest[path] = &art
	s.history[path] = append(s.history[path], art)
	return art
}

// Read returns the latest content for path.
func (s *Store) Read(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	art, ok := s.latest[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return art.Content, nil
}

// Get returns the latest artifact for path.
func (s *Store) Get(path string) (Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	art, ok := s.latest[path]
	if !ok {
		return Artifact{}, false
	}
	return *art, true
}

// Exists reports whether path has ever been written.
func (s *Store) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.latest[path]
	return ok
}

// List returns the latest version of every artifact, sorted by path.
func (s *Store) List() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Artifact, 0, len(s.latest))
	for _, art := range s.latest {
		out = append(out, *art)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Paths returns all known paths sorted lexically.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.latest))
	for path := range s.latest {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// History returns every recorded version of path in write order.
func (s *Store) History(path string) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Artifact(nil), s.history[path]...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}

// Restore rebuilds a store from persisted latest-version artifacts.
// Version history before the snapshot is not recovered.
func Restore(artifacts []Artifact) *Store {
	s := NewStore()
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Seq < artifacts[j].Seq })
	for _, art := range artifacts {
		cp := art
		s.latest[cp.Path] = &cp
		s.history[cp.Path] = append(s.history[cp.Path], cp)
		if cp.Seq > s.seq {
			s.seq = cp.Seq
		}
	}
	return s
}
