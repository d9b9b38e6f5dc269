package agent

import (
	"fmt"
	"strings"

	"overseer/internal/task"
)

// buildFinalResult renders the run report that is always produced,
// whatever the terminal status. Partial progress from failed or
// exhausted runs shows up here too.
func buildFinalResult(state *RunState) string {
	var b strings.Builder

	b.WriteString("## Run Summary\n\n")
	fmt.Fprintf(&b, "Objective: %s\n", state.Objective)
	fmt.Fprintf(&b, "Status: %s", strings.ToUpper(string(state.Status)))
	if state.FailureReason != "" {
		fmt.Fprintf(&b, " (%s)", state.FailureReason)
	}
	b.WriteString("\n")

	completed := state.Tasks.ByStatus(task.StatusCompleted)
	failedTasks := state.Tasks.ByStatus(task.StatusFailed)
	pending := state.Tasks.ByStatus(task.StatusPending)
	fmt.Fprintf(&b, "Tasks: %d completed, %d failed, %d pending (%d iterations)\n",
		len(completed), len(failedTasks), len(pending), state.IterationCount)

	if len(completed) > 0 {
		b.WriteString("\n### Completed work\n")
		for _, rec := range completed {
			fmt.Fprintf(&b, "- %s\n", rec.Description)
			if rec.ResultSummary != "" {
				fmt.Fprintf(&b, "  %s\n", truncate(rec.ResultSummary, 200))
			}
			if len(rec.ProducedPaths) > 0 {
				fmt.Fprintf(&b, "  files: %s\n", strings.Join(rec.ProducedPaths, ", "))
			}
		}
	}

	if len(failedTasks) > 0 {
		b.WriteString("\n### Failed tasks\n")
		for _, rec := range failedTasks {
			fmt.Fprintf(&b, "- %s: %s\n", rec.Description, truncate(rec.FailureReason, 200))
		}
	}

	if state.Store != nil && state.Store.Len() > 0 {
		b.WriteString("\n### Artifacts\n")
		for _, art := range state.Store.List() {
			fmt.Fprintf(&b, "- %s (%d bytes, v%d)\n", art.Path, art.Size, art.Version)
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
