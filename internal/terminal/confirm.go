package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// ConfirmFunc requests user confirmation for an approval-required command.
// It returns true only on explicit approval.
type ConfirmFunc func(ctx context.Context, command string, validation enginetypes.CommandValidation) (bool, error)

// NewPromptConfirm returns a ConfirmFunc that prompts on out and reads a
// yes/no answer from in. Non-interactive sessions must not install this: with
// no way to ask, approval-required commands are denied by default.
func NewPromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(_ context.Context, command string, validation enginetypes.CommandValidation) (bool, error) {
		fmt.Fprintf(out, "%s %s risk: %s\n", validation.RiskLevel.Symbol(), validation.RiskLevel, command)
		if validation.Reason != "" {
			fmt.Fprintf(out, "  reason: %s\n", validation.Reason)
		}
		fmt.Fprint(out, "Allow this command? [y/N] ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

// AutoApprove approves every approval-required command without prompting.
// Intended for non-interactive use where the caller has opted in explicitly.
func AutoApprove(_ context.Context, _ string, _ enginetypes.CommandValidation) (bool, error) {
	return true, nil
}
