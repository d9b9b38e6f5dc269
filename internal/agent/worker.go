package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"overseer/internal/governance"
	"overseer/internal/observability"
	"overseer/internal/tools"
	"overseer/internal/vfs"
)

// WorkerResult is what a worker hands back to the control loop. A
// non-Success result carries FailureReason and its DeclaredOutputs are
// ignored.
type WorkerResult struct {
	Success         bool
	Summary         string
	FailureReason   string
	DeclaredOutputs []Output
}

// Worker executes one task against a spec. Implementations must treat
// task-level problems as a failed result, not an error; the error
// return is for context cancellation only.
type Worker interface {
	Execute(ctx context.Context, spec WorkerSpec) (WorkerResult, error)
}

// LLMWorker runs a task as a tool-calling conversation with the model.
// Every tool call passes the policy engine first; denials go back to
// the model as observations.
type LLMWorker struct {
	Model    llms.Model
	Registry *tools.Registry
	Policy   governance.PolicyEngine
	Prompts  *PromptManager
	Logger   *observability.Logger
	Store    *vfs.Store
	MaxSteps int
}

func (w *LLMWorker) Execute(ctx context.Context, spec WorkerSpec) (WorkerResult, error) {
	st := newStaging(w.Store)
	available := map[string]tools.Tool{
		"workspace": &workspaceTool{staging: st, taskDesc: spec.TaskDescription},
	}
	for _, name := range spec.ToolWhitelist {
		if t := w.Registry.Get(name); t != nil {
			available[name] = t
		}
	}

	llmTools := make([]llms.Tool, 0, len(available))
	for _, name := range sortedKeys(available) {
		t := available[name]
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	system := w.Prompts.WorkerPrompt() + "\n\n" + spec.ContextBlock
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, "Your subtask: "+spec.TaskDescription),
	}

	maxSteps := w.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}

	for step := 0; step < maxSteps; step++ {
		if ctx.Err() != nil {
			return WorkerResult{}, ctx.Err()
		}
		resp, err := w.Model.GenerateContent(ctx, messages, llms.WithTools(llmTools))
		if err != nil {
			if ctx.Err() != nil {
				return WorkerResult{}, ctx.Err()
			}
			return failed(fmt.Sprintf("model call failed: %v", err)), nil
		}
		if len(resp.Choices) == 0 {
			return failed("model returned no choices"), nil
		}
		choice := resp.Choices[0]
		if w.Logger != nil {
			w.Logger.LogLLM(spec.RunID, spec.TaskID, nil, choice.Content, choice.ToolCalls)
		}

		if len(choice.ToolCalls) == 0 {
			summary := strings.TrimSpace(choice.Content)
			if summary == "" {
				summary = "task completed"
			}
			return WorkerResult{
				Success:         true,
				Summary:         summary,
				DeclaredOutputs: st.outputs(),
			}, nil
		}

		// Some providers emit tool-call stubs with no function payload;
		// those carry nothing to execute or respond to.
		calls := choice.ToolCalls[:0]
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				if w.Logger != nil {
					w.Logger.LogWarning(spec.RunID, spec.TaskID, "malformed_tool_call", tc.ID)
				}
				continue
			}
			calls = append(calls, tc)
		}
		if len(calls) == 0 {
			return failed("model emitted only malformed tool calls"), nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range calls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		messages = append(messages, assistant)

		for _, tc := range calls {
			observation := w.invoke(ctx, spec, available, tc)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    observation,
				}},
			})
		}
	}

	return failed(fmt.Sprintf("no conclusion after %d reasoning steps", maxSteps)), nil
}

// invoke runs one tool call through policy and execution, returning
// the observation text for the model.
func (w *LLMWorker) invoke(ctx context.Context, spec WorkerSpec, available map[string]tools.Tool, tc llms.ToolCall) string {
	if tc.FunctionCall == nil {
		return "malformed tool call"
	}
	name := tc.FunctionCall.Name
	args := tc.FunctionCall.Arguments

	if w.Logger != nil {
		w.Logger.LogToolCall(spec.RunID, spec.TaskID, name, args)
	}

	t, ok := available[name]
	if !ok {
		return fmt.Sprintf("tool %q is not available for this task", name)
	}

	if w.Policy != nil {
		res, err := w.Policy.Evaluate(ctx, governance.Request{
			Capability: name,
			Arguments:  args,
			TaskID:     spec.TaskID,
		})
		if err != nil {
			return fmt.Sprintf("policy evaluation failed: %v", err)
		}
		if res.Effect == governance.EffectDeny {
			if w.Logger != nil {
				w.Logger.Log(observability.Event{
					Type:   observability.EventTypePolicy,
					RunID:  spec.RunID,
					TaskID: spec.TaskID,
					Data:   map[string]string{"capability": name, "effect": string(res.Effect), "reason": res.Reason},
				})
			}
			return "denied by policy: " + res.Reason
		}
	}

	out, err := t.Execute(ctx, args)
	if err != nil {
		out = fmt.Sprintf("tool error: %v", err)
	} else if out == "" {
		out = "(no output)"
	}
	if w.Logger != nil {
		w.Logger.Log(observability.Event{
			Type:   observability.EventTypeToolResult,
			RunID:  spec.RunID,
			TaskID: spec.TaskID,
			Data:   map[string]string{"tool": name, "result": truncate(out, 500)},
		})
	}
	return out
}

func failed(reason string) WorkerResult {
	return WorkerResult{Success: false, FailureReason: reason}
}

func sortedKeys(m map[string]tools.Tool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
