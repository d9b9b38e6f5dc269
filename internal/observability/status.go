package observability

import (
	"sync"
	"time"
)

// Phase mirrors the control-loop state for the live dashboard.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhasePlanning    Phase = "PLANNING"
	PhaseDispatch    Phase = "DISPATCH"
	PhaseExecuting   Phase = "EXECUTING"
	PhaseIntegrating Phase = "INTEGRATING"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentPhase  Phase
	ActiveTask    string
	Iteration     int
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	CurrentPhase:  PhaseIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus updates the global system status.
func SetStatus(phase Phase, task string, iteration int) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentPhase = phase
	globalStatus.ActiveTask = task
	globalStatus.Iteration = iteration
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Phase, string, int, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentPhase, globalStatus.ActiveTask, globalStatus.Iteration, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
