package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
	"github.com/vibecli/vibe/internal/engine/executor"
)

// Error definitions
var (
	// ErrBadParams is returned when a step carries the wrong parameter type
	// for its tool. A well-formed plan never produces this.
	ErrBadParams = errors.New("invalid tool parameters")

	// ErrPathEscapesWorkspace is returned when a file tool targets a path
	// outside the workspace root.
	ErrPathEscapesWorkspace = errors.New("path escapes workspace")
)

// Handler executes one tool invocation and returns its textual output.
type Handler func(ctx context.Context, params enginetypes.ToolParams) (string, error)

// Registry maps tool names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces a handler.
func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry wires the built-in tools. Shell-backed tools run through
// exec so every spawned command passes the same safety gate; file tools are
// confined to the workspace root.
func DefaultRegistry(exec *executor.ProcessExecutor, workspace string) *Registry {
	r := NewRegistry()

	shell := func(ctx context.Context, params enginetypes.ToolParams) (string, error) {
		p, ok := params.(enginetypes.ShellParams)
		if !ok {
			return "", fmt.Errorf("%w: shell tool requires ShellParams", ErrBadParams)
		}
		dir := p.Directory
		if dir == "" {
			dir = workspace
		}
		result, err := exec.Execute(ctx, p.Command, executor.Options{Directory: dir})
		if err != nil {
			// Execute returns no result for commands rejected before spawning,
			// such as an empty command string.
			if result == nil {
				return "", err
			}
			return result.Stdout, err
		}
		if !result.Success {
			return result.Stdout, fmt.Errorf("command failed: %s", strings.TrimSpace(result.Stderr))
		}
		return result.Stdout, nil
	}
	r.Register("shell_command", shell)
	r.Register("analyze_project", shell)
	r.Register("git_status", shell)
	r.Register("install_packages", shell)

	r.Register("read_file", func(_ context.Context, params enginetypes.ToolParams) (string, error) {
		p, ok := params.(enginetypes.ReadFileParams)
		if !ok {
			return "", fmt.Errorf("%w: read_file requires ReadFileParams", ErrBadParams)
		}
		path, err := workspacePath(workspace, p.Path)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p.Path, err)
		}
		return string(data), nil
	})

	r.Register("list_files", func(_ context.Context, params enginetypes.ToolParams) (string, error) {
		p, ok := params.(enginetypes.ReadFileParams)
		if !ok {
			return "", fmt.Errorf("%w: list_files requires ReadFileParams", ErrBadParams)
		}
		path, err := workspacePath(workspace, p.Path)
		if err != nil {
			return "", err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", fmt.Errorf("list %s: %w", p.Path, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		return strings.Join(names, "\n"), nil
	})

	r.Register("write_file", func(_ context.Context, params enginetypes.ToolParams) (string, error) {
		p, ok := params.(enginetypes.WriteFileParams)
		if !ok {
			return "", fmt.Errorf("%w: write_file requires WriteFileParams", ErrBadParams)
		}
		path, err := workspacePath(workspace, p.Path)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("write %s: %w", p.Path, err)
		}
		if err := os.WriteFile(path, []byte(p.Content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", p.Path, err)
		}
		return fmt.Sprintf("wrote %d bytes to %s", len(p.Content), p.Path), nil
	})

	r.Register("delete_file", func(_ context.Context, params enginetypes.ToolParams) (string, error) {
		p, ok := params.(enginetypes.ReadFileParams)
		if !ok {
			return "", fmt.Errorf("%w: delete_file requires ReadFileParams", ErrBadParams)
		}
		path, err := workspacePath(workspace, p.Path)
		if err != nil {
			return "", err
		}
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("delete %s: %w", p.Path, err)
		}
		return fmt.Sprintf("deleted %s", p.Path), nil
	})

	r.Register("scaffold_project", func(_ context.Context, params enginetypes.ToolParams) (string, error) {
		p, ok := params.(enginetypes.ScaffoldParams)
		if !ok {
			return "", fmt.Errorf("%w: scaffold_project requires ScaffoldParams", ErrBadParams)
		}
		dir := p.Directory
		if dir == "" {
			dir = p.Template
		}
		path, err := workspacePath(workspace, dir)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return "", fmt.Errorf("scaffold %s: %w", dir, err)
		}
		return fmt.Sprintf("scaffolded %s project in %s", p.Template, dir), nil
	})

	return r
}

// workspacePath resolves rel against the workspace root and rejects paths
// that escape it.
func workspacePath(workspace, rel string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	root, err := filepath.Abs(workspace)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(root, rel)
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesWorkspace, rel)
	}
	return joined, nil
}
