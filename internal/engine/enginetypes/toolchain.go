package enginetypes

import (
	"time"
)

// ToolParams is the tagged parameter type for a planned tool execution.
// Each tool kind has its own concrete parameter struct so that malformed
// plans fail at construction rather than at execution.
type ToolParams interface {
	toolParams()
}

// ShellParams are parameters for a shell command tool execution
type ShellParams struct {
	Command   string
	Directory string
}

func (ShellParams) toolParams() {}

// ReadFileParams are parameters for a file read tool execution
type ReadFileParams struct {
	Path string
}

func (ReadFileParams) toolParams() {}

// WriteFileParams are parameters for a file write tool execution
type WriteFileParams struct {
	Path    string
	Content string
}

func (WriteFileParams) toolParams() {}

// ScaffoldParams are parameters for a project scaffolding tool execution
type ScaffoldParams struct {
	Template  string
	Directory string
}

func (ScaffoldParams) toolParams() {}

// ToolExecution is a planned unit of work within a tool chain.
type ToolExecution struct {
	// Name uniquely identifies this step within the chain and is the key
	// other steps reference in DependsOn.
	Name string

	// Tool is the registered tool to invoke (e.g. "shell_command", "read_file").
	Tool string

	// Params carries the tool-specific parameters.
	Params ToolParams

	// DependsOn lists step names that must have executed before this step.
	DependsOn []string

	// RetryCount is the number of additional attempts after the first failure.
	RetryCount int

	// Timeout bounds one attempt of this step. Zero means the orchestrator default.
	Timeout time.Duration
}

// ToolChain is an ordered, dependency-annotated sequence of planned tool
// executions for one request. It is built once per request and treated as
// immutable during execution; the planner is responsible for producing a
// dependency-respecting order.
type ToolChain struct {
	Tools             []ToolExecution
	Reasoning         string
	EstimatedDuration time.Duration
	RiskLevel         RiskLevel
}

// OrchestrationResult is the outcome of executing one tool chain. Results and
// Errors are always populated for the steps that ran, so callers can inspect
// which earlier steps succeeded despite an overall chain failure.
type OrchestrationResult struct {
	Success  bool
	Results  map[string]string
	Errors   map[string]error
	Duration time.Duration
	Chain    *ToolChain
}
