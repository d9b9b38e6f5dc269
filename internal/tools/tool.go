package tools

import (
	"context"
	"sort"
	"strings"
)

// Tool is one externally provided capability a worker can invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Registry is the static capability registry. The worker-spec factory
// intersects each task's requested capabilities against it; workers
// only ever see whitelisted entries.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered capability names sorted lexically, so
// callers iterating the registry stay deterministic.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Normalize folds common planner misspellings of capability names:
// a trailing "_tool" suffix and surrounding whitespace.
func Normalize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.TrimSuffix(name, "_tool")
}
