package agent

import (
	"os"
	"path/filepath"
)

// PromptManager serves the planner and worker system prompts. Files in
// the configured directory override the embedded defaults, so prompts
// can be tuned without a rebuild.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

func (pm *PromptManager) load(name, fallback string) string {
	if pm == nil || pm.Directory == "" {
		return fallback
	}
	data, err := os.ReadFile(filepath.Join(pm.Directory, name))
	if err != nil {
		return fallback
	}
	return string(data)
}

func (pm *PromptManager) PlannerPrompt() string {
	return pm.load("planner.md", defaultPlannerPrompt)
}

func (pm *PromptManager) WorkerPrompt() string {
	return pm.load("worker.md", defaultWorkerPrompt)
}

const defaultPlannerPrompt = `You are the planning brain of an orchestration engine.

Given an objective, decompose it into a short, ordered list of concrete
subtasks. Each subtask must be independently executable by a worker that
can read and write shared artifacts and call the listed capabilities.

Rules:
- Keep plans minimal. Three to six tasks is typical; never pad.
- Each description states one deliverable, including the artifact path
  it should produce or modify when that is known.
- Only request capabilities from the available list. Omit the list to
  let the system infer capabilities from the description.
- When shown prior task results, return ONLY new or corrective tasks.
  Return an empty task list if the remaining plan is still right.

Always respond by calling the propose_plan function.`

const defaultWorkerPrompt = `You are a worker agent executing one subtask of a larger objective.

You have a shared workspace of named artifacts and a restricted set of
capabilities. Work step by step: inspect what exists, act, verify.

Rules:
- Use the workspace tool to read and write artifacts. Artifact paths
  are plain relative names like "report.md".
- Prefer editing an existing artifact over rewriting it. Use append or
  find_replace edits unless the task explicitly asks for a rewrite.
- Stay inside the subtask. Do not attempt other tasks from the plan.
- When the subtask is done, reply with a short plain-text summary of
  what you did and which artifacts you touched. Do not call tools in
  your final reply.`
