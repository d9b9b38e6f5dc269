package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"overseer/internal/task"
	"overseer/internal/tools"
	"overseer/internal/vfs"
)

// fakeModel replays scripted responses; the last one repeats once the
// script runs out. A non-nil entry in errs fails that call instead.
type fakeModel struct {
	responses []*llms.ContentResponse
	errs      []error
	calls     int
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	if i >= len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	return m.responses[i], nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func planResponse(argsJSON string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "propose_plan",
				Arguments: argsJSON,
			},
		}},
	}}}
}

func toolCallResponse(id, name, argsJSON string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   id,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      name,
				Arguments: argsJSON,
			},
		}},
	}}}
}

func newTestPlanner(model llms.Model) *Planner {
	return &Planner{
		Model:   model,
		Prompts: NewPromptManager(""),
		Retries: 2,
		Backoff: time.Millisecond,
	}
}

func TestPlanParsesToolCall(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		planResponse(`{"tasks":[
			{"description":"gather the data","required_capabilities":["search_internet"]},
			{"description":"write the report"}
		]}`),
	}}
	p := newTestPlanner(model)

	records, err := p.Plan(context.Background(), "run1", "produce a report", task.NewList(), vfs.NewStore())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(records))
	}
	if records[0].Description != "gather the data" {
		t.Errorf("unexpected first task: %q", records[0].Description)
	}
	if len(records[0].AssignedTools) != 1 || records[0].AssignedTools[0] != "search_internet" {
		t.Errorf("capabilities not carried over: %v", records[0].AssignedTools)
	}
}

func TestPlanTextFallback(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		textResponse("Here is the plan:\n1. collect sources\n2) draft the summary\n- review everything\nThat should do it."),
	}}
	p := newTestPlanner(model)

	records, err := p.Plan(context.Background(), "run1", "x", task.NewList(), vfs.NewStore())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 tasks from list lines, got %d: %v", len(records), records)
	}
	if records[1].Description != "draft the summary" {
		t.Errorf("unexpected second task: %q", records[1].Description)
	}
}

func TestPlanProseWithoutListYieldsNoTasks(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		textResponse("No further tasks are needed."),
	}}
	p := newTestPlanner(model)

	records, err := p.Plan(context.Background(), "run1", "x", task.NewList(), vfs.NewStore())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no tasks, got %v", records)
	}
}

func TestPlanRetriesThenSucceeds(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("temporary"), errors.New("temporary")},
		responses: []*llms.ContentResponse{nil, nil, planResponse(`{"tasks":[{"description":"only task"}]}`)},
	}
	p := newTestPlanner(model)

	records, err := p.Plan(context.Background(), "run1", "x", task.NewList(), vfs.NewStore())
	if err != nil {
		t.Fatalf("Plan failed after retries: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 task, got %d", len(records))
	}
	if model.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", model.calls)
	}
}

func TestPlanUnavailableAfterRetries(t *testing.T) {
	boom := errors.New("provider down")
	model := &fakeModel{errs: []error{boom, boom, boom}}
	p := newTestPlanner(model)

	_, err := p.Plan(context.Background(), "run1", "x", task.NewList(), vfs.NewStore())
	if !errors.Is(err, ErrPlanningUnavailable) {
		t.Fatalf("expected ErrPlanningUnavailable, got %v", err)
	}
	if model.calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", model.calls)
	}
}

func TestPlannerSystemPromptListsCapabilities(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.NewExecTool())
	p := newTestPlanner(&fakeModel{})
	p.Registry = reg

	prompt := p.systemPrompt()
	if !strings.Contains(prompt, "execute_code") {
		t.Errorf("system prompt missing registry capability:\n%s", prompt)
	}
}
