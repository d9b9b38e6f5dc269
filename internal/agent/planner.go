package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"overseer/internal/observability"
	"overseer/internal/task"
	"overseer/internal/tools"
	"overseer/internal/vfs"
)

var (
	// ErrEmptyPlan means the model produced no tasks for a fresh
	// objective. A run cannot start without a plan.
	ErrEmptyPlan = errors.New("planner returned an empty plan")
	// ErrPlanningUnavailable wraps transport or provider failures that
	// survived every retry.
	ErrPlanningUnavailable = errors.New("planning service unavailable")
)

// PlannedTask is one entry of a proposed plan as the model emits it.
type PlannedTask struct {
	ID                   int      `json:"id,omitempty"`
	Description          string   `json:"description"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

type proposePlanArgs struct {
	Tasks []PlannedTask `json:"tasks"`
}

// Planner turns an objective plus run history into task records via
// the external model. Calls are retried with doubling backoff before
// the failure is surfaced as ErrPlanningUnavailable.
type Planner struct {
	Model    llms.Model
	Prompts  *PromptManager
	Registry *tools.Registry
	Logger   *observability.Logger
	Retries  int
	Backoff  time.Duration
}

var proposePlanTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "propose_plan",
		Description: "Submit the ordered list of subtasks for the objective. Submit an empty list when no new tasks are needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tasks": map[string]any{
					"type":        "array",
					"description": "Ordered subtasks.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description": map[string]any{
								"type":        "string",
								"description": "What the worker must do, including the target artifact path when known.",
							},
							"required_capabilities": map[string]any{
								"type":        "array",
								"items":       map[string]any{"type": "string"},
								"description": "Capability names from the available list. Optional.",
							},
						},
						"required": []string{"description"},
					},
				},
			},
			"required": []string{"tasks"},
		},
	},
}

// Plan asks the model for tasks. On a fresh run (empty list) it
// requests a full decomposition; on replan it shows the history and
// asks only for additions or corrections. The returned records are
// ready for List.Append.
func (p *Planner) Plan(ctx context.Context, runID, objective string, list *task.List, store *vfs.Store) ([]task.Record, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.systemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, p.userPrompt(objective, list, store)),
	}

	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var resp *llms.ContentResponse
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = p.Model.GenerateContent(ctx, messages, llms.WithTools([]llms.Tool{proposePlanTool}))
		if err == nil && len(resp.Choices) > 0 {
			break
		}
		if err == nil {
			err = errors.New("model returned no choices")
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w: %v", ErrPlanningUnavailable, err)
		}
		if p.Logger != nil {
			p.Logger.LogWarning(runID, 0, "planner_retry", err.Error())
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrPlanningUnavailable, ctx.Err())
		case <-time.After(backoff << attempt):
		}
	}

	choice := resp.Choices[0]
	planned, source := extractPlan(choice)
	if p.Logger != nil {
		p.Logger.LogLLM(runID, 0, messages, choice.Content, choice.ToolCalls)
		p.Logger.LogPlan(runID, len(planned), source)
	}

	records := make([]task.Record, 0, len(planned))
	for _, pt := range planned {
		desc := strings.TrimSpace(pt.Description)
		if desc == "" {
			continue
		}
		records = append(records, task.Record{
			ID:            pt.ID,
			Description:   desc,
			AssignedTools: pt.RequiredCapabilities,
		})
	}
	return records, nil
}

func (p *Planner) systemPrompt() string {
	var b strings.Builder
	b.WriteString(p.Prompts.PlannerPrompt())
	if p.Registry != nil {
		b.WriteString("\n\nAvailable capabilities:\n")
		for _, name := range p.Registry.Names() {
			t := p.Registry.Get(name)
			b.WriteString(fmt.Sprintf("- %s: %s\n", name, t.Description()))
		}
	}
	return b.String()
}

func (p *Planner) userPrompt(objective string, list *task.List, store *vfs.Store) string {
	var b strings.Builder
	b.WriteString("Objective: " + objective + "\n")

	if list != nil && list.Len() > 0 {
		b.WriteString("\nPlan so far:\n")
		for _, rec := range list.All() {
			line := fmt.Sprintf("%d. [%s] %s", rec.ID, rec.Status, rec.Description)
			switch rec.Status {
			case task.StatusCompleted:
				line += " => " + rec.ResultSummary
			case task.StatusFailed:
				line += " => FAILED: " + rec.FailureReason
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\nReturn only new or corrective tasks. An empty list means the remaining plan stands.\n")
	}

	if store != nil && store.Len() > 0 {
		b.WriteString("\nWorkspace artifacts:\n")
		for _, art := range store.List() {
			b.WriteString(fmt.Sprintf("- %s (%d bytes, v%d)\n", art.Path, art.Size, art.Version))
		}
	}
	return b.String()
}

// extractPlan pulls tasks from the propose_plan call, falling back to
// parsing numbered or bulleted lines from plain text. Models that
// ignore the function-call instruction still tend to emit a list.
func extractPlan(choice *llms.ContentChoice) ([]PlannedTask, string) {
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != "propose_plan" {
			continue
		}
		var args proposePlanArgs
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			continue
		}
		return args.Tasks, "tool_call"
	}
	return parsePlanText(choice.Content), "text_fallback"
}

var planLineRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

func parsePlanText(content string) []PlannedTask {
	var out []PlannedTask
	for _, line := range strings.Split(content, "\n") {
		if m := planLineRe.FindStringSubmatch(line); m != nil {
			out = append(out, PlannedTask{Description: strings.TrimSpace(m[1])})
		}
	}
	return out
}
