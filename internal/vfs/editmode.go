package vfs

import "strings"

// EditDecision is the outcome of edit-mode selection for one target
// path.
type EditDecision struct {
	// Fresh means the path does not exist yet; the write is a plain
	// create, not an edit, and Mode is irrelevant.
	Fresh bool
	Mode  EditMode
	// Anchor is the substring a find_replace edit should target. Only
	// set when Mode is ModeFindReplace.
	Anchor string
}

var appendMarkers = []string{"add", "append", "also include", "insert"}

var replaceMarkers = []string{"replace", "rewrite", "overwrite", "regenerate", "from scratch", "start over"}

// SelectEditMode chooses how a task should modify an existing
// artifact. The policy is biased against destructive edits: without an
// explicit replace signal the selector never picks ModeReplace, and
// when no find_replace anchor can be identified it falls back to
// ModeAppend.
func SelectEditMode(description string, exists bool, existing string) EditDecision {
	if !exists {
		return EditDecision{Fresh: true}
	}

	desc := strings.ToLower(description)
	hasReplace := containsAnyWord(desc, replaceMarkers)
	hasAppend := containsAnyWord(desc, appendMarkers)

	if hasReplace {
		return EditDecision{Mode: ModeReplace}
	}
	if hasAppend {
		return EditDecision{Mode: ModeAppend}
	}

	if anchor := findAnchor(description, existing); anchor != "" {
		return EditDecision{Mode: ModeFindReplace, Anchor: anchor}
	}
	// No anchor and no explicit replace signal: append is the safe
	// default.
	return EditDecision{Mode: ModeAppend}
}

// containsAnyWord matches markers on word boundaries so that e.g.
// "address" does not trigger the "add" marker.
func containsAnyWord(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(m, " ") {
			if strings.Contains(text, m) {
				return true
			}
			continue
		}
		for _, word := range splitWords(text) {
			if word == m {
				return true
			}
		}
	}
	return false
}

// findAnchor looks for a substring of the task description that is
// present in the existing content. Quoted fragments win; otherwise the
// longest description word found in the content is used.
func findAnchor(description, existing string) string {
	for _, q := range []byte{'"', '\''} {
		parts := strings.Split(description, string(q))
		// Odd indexes are inside quotes.
		for i := 1; i < len(parts); i += 2 {
			if parts[i] != "" && strings.Contains(existing, parts[i]) {
				return parts[i]
			}
		}
	}

	// The word match is case-insensitive, but the anchor must occur
	// verbatim in the content so a find_replace edit on it succeeds.
	// splitWords yields ASCII words, and asciiLower preserves byte
	// offsets, so the index maps straight back into the original.
	best := ""
	lowered := asciiLower(existing)
	for _, word := range splitWords(description) {
		if len(word) < 4 || isStopword(word) || len(word) <= len(best) {
			continue
		}
		if idx := strings.Index(lowered, word); idx >= 0 {
			best = existing[idx : idx+len(word)]
		}
	}
	return best
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}
