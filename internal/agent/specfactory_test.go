package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"overseer/internal/task"
	"overseer/internal/tools"
	"overseer/internal/vfs"
)

func newTestFactory(budget int) *SpecFactory {
	reg := tools.NewRegistry()
	reg.Register(tools.NewExecTool())
	reg.Register(&stubTool{name: "search_internet"})
	return &SpecFactory{
		Registry:      reg,
		Store:         vfs.NewStore(),
		ContextBudget: budget,
	}
}

func TestBuildIntersectsWhitelistWithRegistry(t *testing.T) {
	f := newTestFactory(4000)
	rec := &task.Record{
		ID:            1,
		Description:   "do something",
		AssignedTools: []string{"Execute_Code_Tool", "teleport", "search_internet"},
	}

	spec := f.Build("run1", "obj", rec, nil, nil)
	want := []string{"execute_code", "search_internet"}
	if len(spec.ToolWhitelist) != 2 || spec.ToolWhitelist[0] != want[0] || spec.ToolWhitelist[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, spec.ToolWhitelist)
	}
}

func TestBuildDerivesCapabilitiesFromDescription(t *testing.T) {
	f := newTestFactory(4000)
	rec := &task.Record{ID: 1, Description: "research the latest release and calculate the delta"}

	spec := f.Build("run1", "obj", rec, nil, nil)
	has := map[string]bool{}
	for _, name := range spec.ToolWhitelist {
		has[name] = true
	}
	if !has["search_internet"] || !has["execute_code"] {
		t.Fatalf("expected derived capabilities, got %v", spec.ToolWhitelist)
	}
}

func TestBuildContextBlockDigestAndArtifacts(t *testing.T) {
	f := newTestFactory(4000)
	f.Store.Write("report.md", "draft", 1)

	history := []task.Record{
		{ID: 1, Description: "write draft", Status: task.StatusCompleted, ResultSummary: "drafted the report"},
		{ID: 2, Description: "verify sources", Status: task.StatusFailed, FailureReason: "no sources found"},
	}
	rec := &task.Record{ID: 3, Description: "polish the report"}

	spec := f.Build("run1", "ship the report", rec, history, []string{"report.md"})
	if !strings.Contains(spec.ContextBlock, "ship the report") {
		t.Errorf("objective missing from context block")
	}
	if !strings.Contains(spec.ContextBlock, "drafted the report") {
		t.Errorf("completed summary missing from context block")
	}
	if !strings.Contains(spec.ContextBlock, "FAILED") {
		t.Errorf("failed task missing from context block")
	}
	if !strings.Contains(spec.ContextBlock, "report.md") {
		t.Errorf("artifact index missing from context block")
	}
	// Failed task 2 comes before completed task 1: most recent first.
	if strings.Index(spec.ContextBlock, "task 2") > strings.Index(spec.ContextBlock, "task 1") {
		t.Errorf("digest not most-recent-first:\n%s", spec.ContextBlock)
	}
}

func TestBuildContextBudgetTruncates(t *testing.T) {
	f := newTestFactory(100)
	long := strings.Repeat("result text ", 50)
	var history []task.Record
	for i := 1; i <= 5; i++ {
		history = append(history, task.Record{
			ID: i, Description: "step", Status: task.StatusCompleted, ResultSummary: long,
		})
	}
	rec := &task.Record{ID: 6, Description: "wrap up"}

	spec := f.Build("run1", "obj", rec, history, nil)
	if len(spec.ContextBlock) > 100+400 {
		t.Fatalf("context block not bounded by budget: %d chars", len(spec.ContextBlock))
	}
}

func TestBuildContextBudgetCutsOnRuneBoundary(t *testing.T) {
	// The digest line is 25 bytes of ASCII prefix followed by 2-byte
	// runes, so a cut at byte 60 lands mid-rune.
	f := newTestFactory(60)
	history := []task.Record{
		{ID: 1, Description: "summary", Status: task.StatusCompleted,
			ResultSummary: strings.Repeat("é", 200)},
	}
	rec := &task.Record{ID: 2, Description: "next"}

	spec := f.Build("run1", "obj", rec, history, nil)
	if !utf8.ValidString(spec.ContextBlock) {
		t.Fatalf("truncation produced invalid UTF-8:\n%q", spec.ContextBlock)
	}
}

func TestBuildDeterministic(t *testing.T) {
	f := newTestFactory(4000)
	f.Store.Write("b.txt", "x", 1)
	f.Store.Write("a.txt", "x", 1)
	history := []task.Record{
		{ID: 1, Description: "first", Status: task.StatusCompleted, ResultSummary: "ok"},
	}
	rec := &task.Record{ID: 2, Description: "second step", AssignedTools: []string{"execute_code"}}

	first := f.Build("run1", "obj", rec, history, []string{"a.txt"})
	for i := 0; i < 5; i++ {
		again := f.Build("run1", "obj", rec, history, []string{"a.txt"})
		if again.ContextBlock != first.ContextBlock {
			t.Fatalf("context block not deterministic")
		}
		if strings.Join(again.SuggestedPaths, ",") != strings.Join(first.SuggestedPaths, ",") {
			t.Fatalf("suggested paths not deterministic")
		}
	}
}
