package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"overseer/internal/governance"
	"overseer/internal/tools"
	"overseer/internal/vfs"
)

// stubTool records invocations and returns a canned observation.
type stubTool struct {
	name     string
	response string
	calls    int
	lastArgs string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (s *stubTool) Execute(ctx context.Context, input string) (string, error) {
	s.calls++
	s.lastArgs = input
	if s.response == "" {
		return "ok", nil
	}
	return s.response, nil
}

func newTestWorker(model *fakeModel, reg *tools.Registry, store *vfs.Store) *LLMWorker {
	if reg == nil {
		reg = tools.NewRegistry()
	}
	if store == nil {
		store = vfs.NewStore()
	}
	return &LLMWorker{
		Model:    model,
		Registry: reg,
		Policy:   governance.NewRestrictivePolicyEngine(),
		Prompts:  NewPromptManager(""),
		Store:    store,
		MaxSteps: 5,
	}
}

func TestWorkerWritesStayStagedUntilIntegration(t *testing.T) {
	store := vfs.NewStore()
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", "workspace", `{"command":"write","path":"notes.txt","content":"data"}`),
		textResponse("wrote the notes"),
	}}
	w := newTestWorker(model, nil, store)

	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 1, TaskDescription: "write notes"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.FailureReason)
	}
	if result.Summary != "wrote the notes" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
	if len(result.DeclaredOutputs) != 1 || result.DeclaredOutputs[0].Path != "notes.txt" || result.DeclaredOutputs[0].Content != "data" {
		t.Fatalf("unexpected outputs: %v", result.DeclaredOutputs)
	}
	if store.Exists("notes.txt") {
		t.Errorf("worker write leaked into the shared store before integration")
	}
}

func TestWorkerAutoEditAppends(t *testing.T) {
	store := vfs.NewStore()
	store.Write("list.txt", "alpha", 1)
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", "workspace", `{"command":"edit","path":"list.txt","content":"beta","mode":"auto"}`),
		textResponse("added the entry"),
	}}
	w := newTestWorker(model, nil, store)

	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 2, TaskDescription: "add beta to the list"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.DeclaredOutputs) != 1 {
		t.Fatalf("expected 1 output, got %v", result.DeclaredOutputs)
	}
	if got := result.DeclaredOutputs[0].Content; got != "alpha\nbeta" {
		t.Errorf("expected appended content, got %q", got)
	}
}

func TestWorkerToolOutsideWhitelistIsRefused(t *testing.T) {
	reg := tools.NewRegistry()
	secret := &stubTool{name: "secret_tool"}
	reg.Register(secret)

	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", "secret_tool", `{}`),
		textResponse("done"),
	}}
	w := newTestWorker(model, reg, nil)

	// Whitelist is empty, so secret_tool must not be reachable.
	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 1, TaskDescription: "x"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", result.FailureReason)
	}
	if secret.calls != 0 {
		t.Errorf("tool outside the whitelist was executed")
	}
}

func TestWorkerPolicyDenialBlocksExecution(t *testing.T) {
	reg := tools.NewRegistry()
	exec := &stubTool{name: "execute_code"}
	reg.Register(exec)

	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", "execute_code", `{"command":"rm -rf / --force"}`),
		textResponse("gave up"),
	}}
	w := newTestWorker(model, reg, nil)

	result, err := w.Execute(context.Background(), WorkerSpec{
		TaskID:          1,
		TaskDescription: "cleanup",
		ToolWhitelist:   []string{"execute_code"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.calls != 0 {
		t.Errorf("policy-denied call still executed the tool")
	}
	if !result.Success {
		t.Fatalf("denial should be an observation, not a task failure: %s", result.FailureReason)
	}
}

func TestWorkerSkipsToolCallsWithoutFunctionPayload(t *testing.T) {
	// A tool-call stub with no function payload must not take the
	// process down; the valid call in the same choice still runs.
	mixed := &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{
			{ID: "c1", Type: "function"},
			{ID: "c2", Type: "function", FunctionCall: &llms.FunctionCall{
				Name:      "workspace",
				Arguments: `{"command":"write","path":"out.txt","content":"ok"}`,
			}},
		},
	}}}
	model := &fakeModel{responses: []*llms.ContentResponse{mixed, textResponse("done")}}
	w := newTestWorker(model, nil, nil)

	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 1, TaskDescription: "x"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", result.FailureReason)
	}
	if len(result.DeclaredOutputs) != 1 || result.DeclaredOutputs[0].Path != "out.txt" {
		t.Fatalf("valid call alongside the malformed one was not executed: %v", result.DeclaredOutputs)
	}
}

func TestWorkerAllToolCallsMalformedIsTaskFailure(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		{Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{ID: "c1", Type: "function"}},
		}}},
	}}
	w := newTestWorker(model, nil, nil)

	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 1, TaskDescription: "x"})
	if err != nil {
		t.Fatalf("a malformed response must be a failed result, not an error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.FailureReason, "malformed") {
		t.Errorf("unexpected failure reason %q", result.FailureReason)
	}
}

func TestWorkerModelErrorIsTaskFailure(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("connection refused")}}
	w := newTestWorker(model, nil, nil)

	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 1, TaskDescription: "x"})
	if err != nil {
		t.Fatalf("worker-level failure must not be an error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.FailureReason, "model call failed") {
		t.Errorf("unexpected failure reason %q", result.FailureReason)
	}
}

func TestWorkerStepCapFails(t *testing.T) {
	// Model keeps calling tools forever; the step cap must trip.
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", "workspace", `{"command":"list"}`),
	}}
	w := newTestWorker(model, nil, nil)
	w.MaxSteps = 3

	result, err := w.Execute(context.Background(), WorkerSpec{TaskID: 1, TaskDescription: "x"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure at step cap")
	}
	if model.calls != 3 {
		t.Errorf("expected 3 model calls, got %d", model.calls)
	}
}
