package agent

import (
	"sort"

	"overseer/internal/vfs"
)

// Output is one artifact a worker declares as its result.
type Output struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// staging overlays a task's writes on the shared store. Reads fall
// through to the store; writes stay local until the control loop
// ingests them after a successful task. A failed task's writes are
// discarded with the staging, so partial results never reach the
// store.
type staging struct {
	base   *vfs.Store
	writes map[string]string
	order  []string
}

func newStaging(base *vfs.Store) *staging {
	return &staging{base: base, writes: make(map[string]string)}
}

func (st *staging) read(path string) (string, error) {
	if content, ok := st.writes[path]; ok {
		return content, nil
	}
	return st.base.Read(path)
}

func (st *staging) exists(path string) bool {
	if _, ok := st.writes[path]; ok {
		return true
	}
	return st.base.Exists(path)
}

func (st *staging) write(path, content string) {
	if _, ok := st.writes[path]; !ok {
		st.order = append(st.order, path)
	}
	st.writes[path] = content
}

// list merges store paths with staged paths, sorted.
func (st *staging) list() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range st.base.Paths() {
		seen[p] = true
		out = append(out, p)
	}
	for p := range st.writes {
		if !seen[p] {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// outputs returns the staged writes in first-write order.
func (st *staging) outputs() []Output {
	out := make([]Output, 0, len(st.order))
	for _, p := range st.order {
		out = append(out, Output{Path: p, Content: st.writes[p]})
	}
	return out
}
