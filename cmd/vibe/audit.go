package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibecli/vibe/internal/color"
	"github.com/vibecli/vibe/internal/terminal"
)

func newAuditCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	cmd.AddCommand(newAuditListCmd(flags), newAuditStatsCmd(flags), newAuditClearCmd(flags))
	return cmd
}

func newAuditListCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.Audit().Recent(limit)
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(os.Stderr, "audit log is empty")
				return nil
			}
			colored := terminal.NewInteractiveDetector(terminal.DetectorOptions{}).IsTerminal()
			for _, entry := range entries {
				ts := entry.Timestamp
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					ts = t.Local().Format("2006-01-02 15:04:05")
				}
				line := fmt.Sprintf("%s %s %-14s %s", ts, color.Symbol(entry.RiskLevel, colored), entry.Action, entry.Command)
				if entry.Result != "" {
					line += fmt.Sprintf(" [%s]", entry.Result)
				}
				if entry.DryRun {
					line += " (dry-run)"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show")
	return cmd
}

func newAuditStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			stats, err := eng.Audit().Stats()
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}
			fmt.Printf("entries: %d\n", stats.Total)
			printCounts("by action", stats.ByAction)
			printCounts("by result", stats.ByResult)
			if stats.WriteFailures > 0 {
				fmt.Printf("write failures this session: %d\n", stats.WriteFailures)
			}
			return nil
		},
	}
}

func newAuditClearCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Audit().Clear(); err != nil {
				return fmt.Errorf("clear audit log: %w", err)
			}
			fmt.Fprintln(os.Stderr, "audit log cleared")
			return nil
		},
	}
}

func printCounts(label string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%s:\n", label)
	for _, k := range keys {
		fmt.Printf("  %-16s %d\n", k, counts[k])
	}
}
