package vfs

import (
	"fmt"
	"strings"
)

// EditMode is the strategy used to modify an existing artifact.
type EditMode string

const (
	ModeAppend      EditMode = "append"
	ModeFindReplace EditMode = "find_replace"
	ModeReplace     EditMode = "replace"
)

// Replacement is one find/replace pair for ModeFindReplace. Every
// occurrence of Find is replaced.
type Replacement struct {
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

// ApplyEdit computes the edited content without touching any store.
// It returns the new content and a diff of the change. Append inserts
// a newline separator when the existing content does not end with one.
func ApplyEdit(existing string, mode EditMode, content string, repls []Replacement) (string, string, error) {
	switch mode {
	case ModeAppend:
		sep := ""
		if existing != "" && !strings.HasSuffix(existing, "\n") {
			sep = "\n"
		}
		updated := existing + sep + content
		return updated, Diff(existing, updated), nil

	case ModeReplace:
		return content, Diff(existing, content), nil

	case ModeFindReplace:
		if len(repls) == 0 {
			return "", "", fmt.Errorf("find_replace edit requires at least one replacement")
		}
		updated := existing
		total := 0
		for _, r := range repls {
			if r.Find == "" {
				continue
			}
			total += strings.Count(updated, r.Find)
			updated = strings.ReplaceAll(updated, r.Find, r.Replace)
		}
		if total == 0 {
			return "", "", fmt.Errorf("find_replace matched nothing in target")
		}
		return updated, Diff(existing, updated), nil

	default:
		return "", "", fmt.Errorf("unknown edit mode %q", mode)
	}
}

// Apply edits an existing artifact in the store and records the new
// version. It fails if the path does not exist; fresh content goes
// through Write instead.
func (s *Store) Apply(path string, mode EditMode, content string, repls []Replacement, taskID int) (Artifact, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.latest[path]
	if !ok {
		return Artifact{}, "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	updated, diff, err := ApplyEdit(prev.Content, mode, content, repls)
	if err != nil {
		return Artifact{}, "", err
	}
	return s.write(path, updated, taskID), diff, nil
}

// Diff renders a minimal line diff between old and new content. It is
// meant for logs, not for patching.
func Diff(oldText, newText string) string {
	if oldText == newText {
		return "no changes"
	}
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	common := lcsLines(oldLines, newLines)
	var b strings.Builder
	i, j := 0, 0
	for _, c := range common {
		for i < c.old {
			b.WriteString("- " + oldLines[i] + "\n")
			i++
		}
		for j < c.new {
			b.WriteString("+ " + newLines[j] + "\n")
			j++
		}
		b.WriteString("  " + oldLines[i] + "\n")
		i++
		j++
	}
	for i < len(oldLines) {
		b.WriteString("- " + oldLines[i] + "\n")
		i++
	}
	for j < len(newLines) {
		b.WriteString("+ " + newLines[j] + "\n")
		j++
	}
	return strings.TrimRight(b.String(), "\n")
}

type lcsPair struct{ old, new int }

func lcsLines(a, b []string) []lcsPair {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	var pairs []lcsPair
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, lcsPair{i, j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}
