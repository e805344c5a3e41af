package security

import (
	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// Tool names form a closed, known set, so classification uses a static
// membership table rather than pattern matching. A tool is exactly one of
// Read or Write; anything not in the table is Unknown.
var (
	readTools = map[string]struct{}{
		"read_file":       {},
		"list_files":      {},
		"search_code":     {},
		"git_status":      {},
		"analyze_project": {},
	}

	writeTools = map[string]struct{}{
		"write_file":       {},
		"edit_file":        {},
		"delete_file":      {},
		"shell_command":    {},
		"scaffold_project": {},
		"install_packages": {},
	}
)

// DryRunBlockReason is the reason attached to write tools rejected in dry-run mode.
const DryRunBlockReason = "write operations blocked in dry-run mode"

// ToolValidation is the result of validating one tool invocation.
type ToolValidation struct {
	Allowed   bool
	RiskLevel enginetypes.RiskLevel
	Reason    string
}

// ClassifyTool returns the operation type of a registered tool name.
func ClassifyTool(toolName string) enginetypes.OperationType {
	if _, ok := readTools[toolName]; ok {
		return enginetypes.OperationRead
	}
	if _, ok := writeTools[toolName]; ok {
		return enginetypes.OperationWrite
	}
	return enginetypes.OperationUnknown
}

// ValidateToolExecution decides whether a tool may run. In dry-run mode any
// Write-classified tool is blocked regardless of its normal risk; Read tools
// are always allowed at Safe. This rejection is mode-dependent, not a
// statement that the tool is inherently unsafe.
func ValidateToolExecution(toolName string, dryRun bool) ToolValidation {
	opType := ClassifyTool(toolName)

	if opType == enginetypes.OperationRead {
		return ToolValidation{Allowed: true, RiskLevel: enginetypes.RiskLevelSafe}
	}

	if dryRun {
		return ToolValidation{
			Allowed:   false,
			RiskLevel: enginetypes.RiskLevelBlocked,
			Reason:    DryRunBlockReason,
		}
	}

	if opType == enginetypes.OperationWrite {
		return ToolValidation{
			Allowed:   true,
			RiskLevel: enginetypes.RiskLevelMedium,
			Reason:    "tool mutates workspace state",
		}
	}

	return ToolValidation{
		Allowed:   true,
		RiskLevel: enginetypes.RiskLevelLow,
		Reason:    "unrecognized tool",
	}
}
