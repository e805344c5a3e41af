package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

func TestNewPromptConfirm(t *testing.T) {
	validation := enginetypes.CommandValidation{
		Allowed:          true,
		RiskLevel:        enginetypes.RiskLevelHigh,
		Reason:           "force push rewrites remote history",
		RequiresApproval: true,
	}

	tests := []struct {
		name     string
		answer   string
		approved bool
	}{
		{name: "y approves", answer: "y\n", approved: true},
		{name: "yes approves", answer: "yes\n", approved: true},
		{name: "uppercase approves", answer: "YES\n", approved: true},
		{name: "n denies", answer: "n\n", approved: false},
		{name: "empty denies", answer: "\n", approved: false},
		{name: "anything else denies", answer: "sure\n", approved: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			confirm := NewPromptConfirm(strings.NewReader(tt.answer), &out)

			approved, err := confirm(context.Background(), "git push --force", validation)
			require.NoError(t, err)
			assert.Equal(t, tt.approved, approved)

			prompt := out.String()
			assert.Contains(t, prompt, "git push --force")
			assert.Contains(t, prompt, "high")
			assert.Contains(t, prompt, "force push rewrites remote history")
			assert.Contains(t, prompt, "[y/N]")
		})
	}
}

func TestNewPromptConfirm_EOF(t *testing.T) {
	var out bytes.Buffer
	confirm := NewPromptConfirm(strings.NewReader(""), &out)

	approved, err := confirm(context.Background(), "rm -r cache", enginetypes.CommandValidation{})
	assert.Error(t, err)
	assert.False(t, approved)
}

func TestAutoApprove(t *testing.T) {
	approved, err := AutoApprove(context.Background(), "terraform destroy", enginetypes.CommandValidation{
		RiskLevel:        enginetypes.RiskLevelHigh,
		RequiresApproval: true,
	})
	require.NoError(t, err)
	assert.True(t, approved)
}
