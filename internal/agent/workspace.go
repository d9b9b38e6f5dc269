package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"overseer/internal/vfs"
)

// workspaceTool is the artifact interface every worker gets,
// regardless of whitelist. It operates on the task's staging overlay,
// never on the shared store directly.
type workspaceTool struct {
	staging  *staging
	taskDesc string
}

func (w *workspaceTool) Name() string { return "workspace" }

func (w *workspaceTool) Description() string {
	return "Read, write, edit and list the shared workspace artifacts. Writes become visible to later tasks when this task completes."
}

func (w *workspaceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"read", "write", "edit", "list"},
				"description": "Operation to perform.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Artifact path, e.g. 'report.md'. Required for read, write and edit.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write, append, or substitute.",
			},
			"mode": map[string]any{
				"type":        "string",
				"enum":        []string{"auto", "append", "find_replace", "replace"},
				"description": "Edit strategy. Defaults to auto, which picks the least destructive applicable edit.",
			},
			"find": map[string]any{
				"type":        "string",
				"description": "Text to locate for find_replace edits.",
			},
			"replace": map[string]any{
				"type":        "string",
				"description": "Replacement text for find_replace edits.",
			},
		},
		"required": []string{"command"},
	}
}

type workspaceArgs struct {
	Command string `json:"command"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode"`
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

// Execute returns problems as observation strings so the model can
// correct itself; a non-nil error is reserved for malformed input.
func (w *workspaceTool) Execute(ctx context.Context, input string) (string, error) {
	var args workspaceArgs
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid workspace arguments: %w", err)
	}

	switch args.Command {
	case "list":
		paths := w.staging.list()
		if len(paths) == 0 {
			return "workspace is empty", nil
		}
		var b strings.Builder
		for _, p := range paths {
			content, _ := w.staging.read(p)
			fmt.Fprintf(&b, "%s (%d bytes)\n", p, len(content))
		}
		return strings.TrimRight(b.String(), "\n"), nil

	case "read":
		if args.Path == "" {
			return "read requires a path", nil
		}
		content, err := w.staging.read(args.Path)
		if err != nil {
			return fmt.Sprintf("no artifact at %s", args.Path), nil
		}
		return content, nil

	case "write":
		if args.Path == "" {
			return "write requires a path", nil
		}
		w.staging.write(args.Path, args.Content)
		return fmt.Sprintf("wrote %s (%d bytes)", args.Path, len(args.Content)), nil

	case "edit":
		return w.edit(args)

	default:
		return fmt.Sprintf("unknown workspace command %q", args.Command), nil
	}
}

func (w *workspaceTool) edit(args workspaceArgs) (string, error) {
	if args.Path == "" {
		return "edit requires a path", nil
	}
	if !w.staging.exists(args.Path) {
		// Editing a path that does not exist yet is a fresh write.
		w.staging.write(args.Path, args.Content)
		return fmt.Sprintf("created %s (%d bytes)", args.Path, len(args.Content)), nil
	}
	existing, err := w.staging.read(args.Path)
	if err != nil {
		return fmt.Sprintf("no artifact at %s", args.Path), nil
	}

	mode, repls, note := w.resolveEdit(args, existing)
	updated, diff, err := vfs.ApplyEdit(existing, mode, args.Content, repls)
	if err != nil {
		return fmt.Sprintf("edit failed: %v", err), nil
	}
	w.staging.write(args.Path, updated)
	return fmt.Sprintf("edited %s (%s%s)\n%s", args.Path, mode, note, diff), nil
}

// resolveEdit maps tool arguments to a concrete edit. Explicit modes
// win; auto defers to the selection policy driven by the task
// description, falling back to append when find_replace is chosen but
// no usable anchor exists.
func (w *workspaceTool) resolveEdit(args workspaceArgs, existing string) (vfs.EditMode, []vfs.Replacement, string) {
	switch args.Mode {
	case string(vfs.ModeAppend):
		return vfs.ModeAppend, nil, ""
	case string(vfs.ModeReplace):
		return vfs.ModeReplace, nil, ""
	case string(vfs.ModeFindReplace):
		if args.Find != "" {
			return vfs.ModeFindReplace, []vfs.Replacement{{Find: args.Find, Replace: args.Replace}}, ""
		}
		return vfs.ModeAppend, nil, ", no find text given"
	}

	if args.Find != "" {
		return vfs.ModeFindReplace, []vfs.Replacement{{Find: args.Find, Replace: args.Replace}}, ""
	}
	decision := vfs.SelectEditMode(w.taskDesc, true, existing)
	if decision.Mode == vfs.ModeFindReplace {
		// Auto find_replace without explicit replacement text cannot be
		// applied safely.
		return vfs.ModeAppend, nil, ", auto"
	}
	return decision.Mode, nil, ", auto"
}
