package agent

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"overseer/internal/observability"
	"overseer/internal/task"
	"overseer/internal/tools"
	"overseer/internal/vfs"
)

// WorkerSpec is the complete brief handed to a worker for one task. It
// is built fresh at dispatch time so it reflects the current artifact
// store and task history.
type WorkerSpec struct {
	RunID           string
	TaskID          int
	TaskDescription string
	// ToolWhitelist is the intersection of the task's requested
	// capabilities with the registry, sorted. The workspace tool is
	// always available and never listed here.
	ToolWhitelist  []string
	ContextBlock   string
	SuggestedPaths []string
}

// SpecFactory assembles worker specs. ContextBudget caps the size of
// the prior-work digest in characters.
type SpecFactory struct {
	Registry      *tools.Registry
	Store         *vfs.Store
	Logger        *observability.Logger
	ContextBudget int
}

// Build produces the spec for one dispatch. history is the full task
// list snapshot; prevOutputs are the paths produced by the most
// recently completed task. Given identical inputs the output is
// byte-for-byte identical.
func (f *SpecFactory) Build(runID, objective string, rec *task.Record, history []task.Record, prevOutputs []string) WorkerSpec {
	requested := rec.AssignedTools
	if len(requested) == 0 {
		requested = SuggestCapabilities(rec.Description)
	}

	whitelist := make([]string, 0, len(requested))
	seen := make(map[string]bool)
	for _, name := range requested {
		name = tools.Normalize(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !f.Registry.Has(name) {
			if f.Logger != nil {
				f.Logger.LogWarning(runID, rec.ID, "unknown_capability", name)
			}
			continue
		}
		whitelist = append(whitelist, name)
	}
	sort.Strings(whitelist)

	suggested := RankArtifacts(rec.Description, f.Store, prevOutputs)

	return WorkerSpec{
		RunID:           runID,
		TaskID:          rec.ID,
		TaskDescription: rec.Description,
		ToolWhitelist:   whitelist,
		ContextBlock:    f.contextBlock(objective, history, suggested),
		SuggestedPaths:  suggested,
	}
}

// contextBlock renders the objective, a most-recent-first digest of
// terminal task results trimmed to the budget, and the suggested
// artifact index.
func (f *SpecFactory) contextBlock(objective string, history []task.Record, suggested []string) string {
	var b strings.Builder
	b.WriteString("## Objective\n")
	b.WriteString(objective)
	b.WriteString("\n")

	var digest []string
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		switch rec.Status {
		case task.StatusCompleted:
			digest = append(digest, fmt.Sprintf("- [task %d done] %s: %s", rec.ID, rec.Description, rec.ResultSummary))
		case task.StatusFailed:
			digest = append(digest, fmt.Sprintf("- [task %d FAILED] %s: %s", rec.ID, rec.Description, rec.FailureReason))
		}
	}
	if len(digest) > 0 {
		b.WriteString("\n## Prior work (most recent first)\n")
		used := 0
		for _, line := range digest {
			if f.ContextBudget > 0 && used+len(line) > f.ContextBudget {
				remaining := f.ContextBudget - used
				if remaining > 20 {
					// Back off to a rune boundary so the cut never
					// produces invalid UTF-8.
					for remaining > 0 && !utf8.RuneStart(line[remaining]) {
						remaining--
					}
					b.WriteString(line[:remaining] + "...\n")
				}
				break
			}
			b.WriteString(line + "\n")
			used += len(line)
		}
	}

	if len(suggested) > 0 {
		b.WriteString("\n## Workspace artifacts (most relevant first)\n")
		for _, path := range suggested {
			if art, ok := f.Store.Get(path); ok {
				b.WriteString(fmt.Sprintf("- %s (%d bytes, v%d, task %d)\n", art.Path, art.Size, art.Version, art.CreatedBy))
			}
		}
	}

	return b.String()
}

// Capability hints keyed on description keywords, used when the
// planner did not assign any tools. Artifact reads and writes need no
// capability; the workspace tool is always present.
var capabilityHints = []struct {
	capability string
	keywords   []string
}{
	{"execute_code", []string{"calculate", "compute", "script", "algorithm", "formula", "code"}},
	{"search_internet", []string{"search", "research", "look up", "find out", "internet", "web", "news", "latest"}},
	{"web_scrape", []string{"scrape", "crawl", "extract from", "fetch page", "url"}},
	{"browser", []string{"browser", "javascript", "render", "interactive page"}},
}

// SuggestCapabilities derives a capability list from a task
// description. Purely textual; the result is still intersected with
// the registry by the factory.
func SuggestCapabilities(description string) []string {
	desc := strings.ToLower(description)
	var out []string
	for _, hint := range capabilityHints {
		for _, kw := range hint.keywords {
			if strings.Contains(desc, kw) {
				out = append(out, hint.capability)
				break
			}
		}
	}
	return out
}
