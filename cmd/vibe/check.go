package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibecli/vibe/internal/color"
	"github.com/vibecli/vibe/internal/terminal"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check -- <command> [args...]",
		Short: "Classify a command without executing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			command := strings.Join(args, " ")
			validation := eng.Validate(command)

			colored := terminal.NewInteractiveDetector(terminal.DetectorOptions{}).IsTerminal()
			fmt.Printf("%s %s\n", color.Symbol(validation.RiskLevel, colored), command)
			fmt.Printf("  risk:      %s\n", validation.RiskLevel)
			fmt.Printf("  operation: %s\n", validation.OperationType)
			fmt.Printf("  approval:  %t\n", validation.RequiresApproval)
			if validation.Reason != "" {
				fmt.Printf("  reason:    %s\n", validation.Reason)
			}
			if !validation.Allowed {
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}
