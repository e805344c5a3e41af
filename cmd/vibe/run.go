package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const timePrecision = 10 * time.Millisecond

func newRunCmd(flags *rootFlags) *cobra.Command {
	var planOnly bool

	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Plan and execute a tool chain for a natural-language request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			request := strings.Join(args, " ")
			chain := eng.Plan(request)

			fmt.Fprintf(os.Stderr, "Plan (%s risk, ~%s): %s\n",
				chain.RiskLevel, chain.EstimatedDuration, chain.Reasoning)
			for _, tool := range chain.Tools {
				fmt.Fprintf(os.Stderr, "  - %s (%s)\n", tool.Name, tool.Tool)
			}
			if planOnly {
				return nil
			}

			result := eng.RunChain(cmd.Context(), chain)
			for _, tool := range chain.Tools {
				if out, ok := result.Results[tool.Name]; ok && out != "" {
					fmt.Fprintf(os.Stdout, "== %s ==\n%s\n", tool.Name, eng.Mask(out))
				}
			}
			if !result.Success {
				names := make([]string, 0, len(result.Errors))
				for name := range result.Errors {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(os.Stderr, "step %s failed: %v\n", name, result.Errors[name])
				}
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Completed in %s\n", result.Duration.Round(timePrecision))
			return nil
		},
	}

	cmd.Flags().BoolVar(&planOnly, "plan", false, "print the plan without executing it")
	return cmd
}
