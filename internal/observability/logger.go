package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan       EventType = "plan"
	EventTypeDispatch   EventType = "dispatch"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeToolResult EventType = "tool_result"
	EventTypeIntegrate  EventType = "integrate"
	EventTypePolicy     EventType = "policy_check"
	EventTypeWarning    EventType = "warning"
	EventTypeRun        EventType = "run"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	TaskID    int       `json:"task_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. Events go to stdout as JSONL;
// LLM exchanges are additionally mirrored to a rotating file.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(runID string, taskCount int, source string) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data: map[string]any{
			"task_count": taskCount,
			"source":     source,
		},
	})
}

func (l *Logger) LogDispatch(runID string, taskID, iteration int, description string) {
	l.Log(Event{
		Type:   EventTypeDispatch,
		RunID:  runID,
		TaskID: taskID,
		Data: map[string]any{
			"iteration":   iteration,
			"description": description,
		},
	})
}

func (l *Logger) LogToolCall(runID string, taskID int, tool, args string) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		RunID:  runID,
		TaskID: taskID,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogIntegrate(runID string, taskID int, status string, paths []string) {
	l.Log(Event{
		Type:   EventTypeIntegrate,
		RunID:  runID,
		TaskID: taskID,
		Data: map[string]any{
			"status":         status,
			"produced_paths": paths,
		},
	})
}

func (l *Logger) LogWarning(runID string, taskID int, kind, detail string) {
	l.Log(Event{
		Type:   EventTypeWarning,
		RunID:  runID,
		TaskID: taskID,
		Data: map[string]string{
			"kind":   kind,
			"detail": detail,
		},
	})
}

func (l *Logger) LogRun(runID, status, reason string) {
	l.Log(Event{
		Type:  EventTypeRun,
		RunID: runID,
		Data: map[string]string{
			"status": status,
			"reason": reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(runID string, taskID int, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:   EventTypeLLM,
		RunID:  runID,
		TaskID: taskID,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
