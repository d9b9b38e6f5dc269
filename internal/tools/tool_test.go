package tools

import (
	"context"
	"testing"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub" }
func (s *stubTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (s *stubTool) Execute(ctx context.Context, input string) (string, error) {
	return "ok", nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "web_scrape"})
	r.Register(&stubTool{name: "execute_code"})

	if !r.Has("web_scrape") || r.Has("nonexistent") {
		t.Error("Has gave wrong answers")
	}
	if r.Get("execute_code") == nil {
		t.Error("Get returned nil for registered tool")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "execute_code" || names[1] != "web_scrape" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"execute_code_tool": "execute_code",
		" Web_Scrape ":      "web_scrape",
		"search_internet":   "search_internet",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
