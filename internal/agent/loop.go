package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"overseer/internal/observability"
	"overseer/internal/task"
	"overseer/internal/vfs"
)

// RunStatus is the terminal (or current) state of one run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusDone      RunStatus = "done"
	RunStatusFailed    RunStatus = "failed"
	RunStatusExhausted RunStatus = "exhausted"
)

// RunState carries everything one run owns: its task list, its
// artifact store, and the loop counters. Only the control loop writes
// to it while the run is live.
type RunState struct {
	ID             string
	Objective      string
	Tasks          *task.List
	Store          *vfs.Store
	IterationCount int
	MaxIterations  int
	Status         RunStatus
	FailureReason  string
	FinalResult    string
}

// Checkpointer persists run state between iterations. Failures are
// logged and ignored; persistence never blocks the loop.
type Checkpointer interface {
	Save(state *RunState) error
}

// Orchestrator drives the plan/dispatch/integrate/replan cycle for a
// run until the plan is exhausted, the objective fails, or the
// iteration cap trips.
type Orchestrator struct {
	Planner    *Planner
	Worker     Worker
	Specs      *SpecFactory
	Logger     *observability.Logger
	Checkpoint Checkpointer
	// MaxIterations caps dispatches per run. The counter increments at
	// dispatch, before the worker runs, so a run can observe at most
	// MaxIterations+1 on the counter and never execute past the cap.
	MaxIterations int
	// SimilarityThreshold is used to drop replanned tasks that
	// duplicate an existing description.
	SimilarityThreshold float64
}

// Run executes objective to a terminal state. The returned state is
// always usable, including after failures; the error return is
// reserved for context cancellation.
func (o *Orchestrator) Run(ctx context.Context, objective string) (*RunState, error) {
	state := &RunState{
		ID:            uuid.NewString(),
		Objective:     objective,
		Tasks:         task.NewList(),
		Store:         o.Specs.Store,
		MaxIterations: o.MaxIterations,
		Status:        RunStatusRunning,
	}
	if state.Store == nil {
		state.Store = vfs.NewStore()
		o.Specs.Store = state.Store
	}

	observability.SetStatus(observability.PhasePlanning, objective, 0)
	records, err := o.Planner.Plan(ctx, state.ID, objective, state.Tasks, state.Store)
	if err != nil {
		return o.finish(state, RunStatusFailed, err.Error()), o.ctxErr(ctx)
	}
	if len(records) == 0 {
		return o.finish(state, RunStatusFailed, ErrEmptyPlan.Error()), nil
	}
	state.Tasks.Append(records)

	var prevOutputs []string
	for {
		rec := state.Tasks.NextPending()
		if rec == nil {
			if len(state.Tasks.ByStatus(task.StatusCompleted)) > 0 {
				return o.finish(state, RunStatusDone, ""), nil
			}
			return o.finish(state, RunStatusFailed, "every task failed"), nil
		}

		state.IterationCount++
		if state.IterationCount > state.MaxIterations {
			return o.finish(state, RunStatusExhausted,
				fmt.Sprintf("iteration cap of %d reached with work remaining", state.MaxIterations)), nil
		}

		observability.SetStatus(observability.PhaseDispatch, rec.Description, state.IterationCount)
		if o.Logger != nil {
			o.Logger.LogDispatch(state.ID, rec.ID, state.IterationCount, rec.Description)
		}
		spec := o.Specs.Build(state.ID, objective, rec, state.Tasks.All(), prevOutputs)
		if err := state.Tasks.Mark(rec.ID, task.StatusInProgress, ""); err != nil {
			return o.finish(state, RunStatusFailed, err.Error()), nil
		}

		observability.SetStatus(observability.PhaseExecuting, rec.Description, state.IterationCount)
		result, err := o.Worker.Execute(ctx, spec)
		if err != nil {
			// Only cancellation comes back as an error.
			_ = state.Tasks.MarkFailed(rec.ID, "canceled: "+err.Error())
			o.finish(state, RunStatusFailed, err.Error())
			return state, err
		}

		observability.SetStatus(observability.PhaseIntegrating, rec.Description, state.IterationCount)
		prevOutputs = o.integrate(state, rec.ID, result)

		if o.Checkpoint != nil {
			if err := o.Checkpoint.Save(state); err != nil && o.Logger != nil {
				o.Logger.LogWarning(state.ID, rec.ID, "checkpoint_failed", err.Error())
			}
		}

		if err := o.replan(ctx, state); err != nil {
			return o.finish(state, RunStatusFailed, err.Error()), o.ctxErr(ctx)
		}
	}
}

// integrate folds a worker result into the run: successful outputs are
// written to the store in declaration order and the task record moves
// to its terminal status. Outputs of a failed task are dropped.
func (o *Orchestrator) integrate(state *RunState, taskID int, result WorkerResult) []string {
	if !result.Success {
		reason := result.FailureReason
		if reason == "" {
			reason = "worker reported failure"
		}
		_ = state.Tasks.MarkFailed(taskID, reason)
		if o.Logger != nil {
			o.Logger.LogIntegrate(state.ID, taskID, string(task.StatusFailed), nil)
		}
		return nil
	}

	paths := make([]string, 0, len(result.DeclaredOutputs))
	for _, out := range result.DeclaredOutputs {
		state.Store.Write(out.Path, out.Content, taskID)
		paths = append(paths, out.Path)
	}
	_ = state.Tasks.MarkCompleted(taskID, result.Summary, paths)
	if o.Logger != nil {
		o.Logger.LogIntegrate(state.ID, taskID, string(task.StatusCompleted), paths)
	}
	return paths
}

// replan asks the planner for plan amendments after each integration.
// Returned tasks that duplicate an existing record, by id or by
// near-identical description, are discarded.
func (o *Orchestrator) replan(ctx context.Context, state *RunState) error {
	records, err := o.Planner.Plan(ctx, state.ID, state.Objective, state.Tasks, state.Store)
	if err != nil {
		return err
	}
	threshold := o.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	fresh := records[:0]
	for _, rec := range records {
		if rec.ID == 0 {
			if _, err := state.Tasks.Resolve(rec.Description, threshold); err == nil {
				if o.Logger != nil {
					o.Logger.LogWarning(state.ID, 0, "duplicate_task_dropped", rec.Description)
				}
				continue
			}
		}
		fresh = append(fresh, rec)
	}
	state.Tasks.Append(fresh)
	return nil
}

// finish seals the run: status, final summary, terminal checkpoint.
func (o *Orchestrator) finish(state *RunState, status RunStatus, reason string) *RunState {
	state.Status = status
	state.FailureReason = reason
	state.FinalResult = buildFinalResult(state)
	if o.Logger != nil {
		o.Logger.LogRun(state.ID, string(status), reason)
	}
	if o.Checkpoint != nil {
		if err := o.Checkpoint.Save(state); err != nil && o.Logger != nil {
			o.Logger.LogWarning(state.ID, 0, "checkpoint_failed", err.Error())
		}
	}
	observability.SetStatus(observability.PhaseIdle, "", state.IterationCount)
	return state
}

func (o *Orchestrator) ctxErr(ctx context.Context) error {
	return ctx.Err()
}
