package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

func TestClassifyTool(t *testing.T) {
	tests := []struct {
		tool     string
		expected enginetypes.OperationType
	}{
		{"read_file", enginetypes.OperationRead},
		{"list_files", enginetypes.OperationRead},
		{"search_code", enginetypes.OperationRead},
		{"git_status", enginetypes.OperationRead},
		{"analyze_project", enginetypes.OperationRead},
		{"write_file", enginetypes.OperationWrite},
		{"edit_file", enginetypes.OperationWrite},
		{"delete_file", enginetypes.OperationWrite},
		{"shell_command", enginetypes.OperationWrite},
		{"scaffold_project", enginetypes.OperationWrite},
		{"install_packages", enginetypes.OperationWrite},
		{"mystery_tool", enginetypes.OperationUnknown},
		{"", enginetypes.OperationUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyTool(tt.tool))
		})
	}
}

func TestValidateToolExecution(t *testing.T) {
	tests := []struct {
		name          string
		tool          string
		dryRun        bool
		wantAllowed   bool
		wantRiskLevel enginetypes.RiskLevel
		wantReason    string
	}{
		{
			name:          "read tool allowed",
			tool:          "read_file",
			wantAllowed:   true,
			wantRiskLevel: enginetypes.RiskLevelSafe,
		},
		{
			name:          "read tool allowed in dry run",
			tool:          "read_file",
			dryRun:        true,
			wantAllowed:   true,
			wantRiskLevel: enginetypes.RiskLevelSafe,
		},
		{
			name:          "write tool allowed normally",
			tool:          "write_file",
			wantAllowed:   true,
			wantRiskLevel: enginetypes.RiskLevelMedium,
		},
		{
			name:          "write tool blocked in dry run",
			tool:          "write_file",
			dryRun:        true,
			wantAllowed:   false,
			wantRiskLevel: enginetypes.RiskLevelBlocked,
			wantReason:    DryRunBlockReason,
		},
		{
			name:          "shell blocked in dry run",
			tool:          "shell_command",
			dryRun:        true,
			wantAllowed:   false,
			wantRiskLevel: enginetypes.RiskLevelBlocked,
			wantReason:    DryRunBlockReason,
		},
		{
			name:          "unknown tool allowed at low risk",
			tool:          "mystery_tool",
			wantAllowed:   true,
			wantRiskLevel: enginetypes.RiskLevelLow,
		},
		{
			name:          "unknown tool blocked in dry run",
			tool:          "mystery_tool",
			dryRun:        true,
			wantAllowed:   false,
			wantRiskLevel: enginetypes.RiskLevelBlocked,
			wantReason:    DryRunBlockReason,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateToolExecution(tt.tool, tt.dryRun)

			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantRiskLevel, result.RiskLevel)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, result.Reason)
			}
		})
	}
}
