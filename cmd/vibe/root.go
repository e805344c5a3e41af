package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibecli/vibe/internal/engine"
	"github.com/vibecli/vibe/internal/engine/config"
	"github.com/vibecli/vibe/internal/logging"
	"github.com/vibecli/vibe/internal/terminal"
)

type rootFlags struct {
	configPath string
	dryRun     bool
	noAudit    bool
	logLevel   string
	yes        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "vibe",
		Short:         "Safe command execution engine",
		Long:          "vibe classifies shell commands by risk, masks secrets, audits every decision, and executes approved commands with streaming, timeout, and retry support.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to TOML config file")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "validate and plan without executing write operations")
	cmd.PersistentFlags().BoolVar(&flags.noAudit, "no-audit", false, "disable the audit log")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&flags.yes, "yes", "y", false, "approve all approval-required commands without prompting")

	cmd.AddCommand(
		newExecCmd(flags),
		newRunCmd(flags),
		newCheckCmd(flags),
		newAuditCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig builds the effective configuration from file, environment,
// and flags, in increasing precedence.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.dryRun {
		cfg.Workspace.DryRun = true
	}
	if flags.noAudit {
		cfg.Audit.Enabled = false
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	return cfg, nil
}

// newEngine builds the engine with logging and interactive confirmation
// wired in. The caller must Close it.
func newEngine(flags *rootFlags) (*engine.Engine, *config.Config, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Logging.Level)

	opts := []engine.Option{engine.WithLogger(logger)}
	switch {
	case flags.yes:
		opts = append(opts, engine.WithConfirmFunc(terminal.AutoApprove))
	case terminal.NewInteractiveDetector(terminal.DetectorOptions{}).IsInteractive():
		opts = append(opts, engine.WithConfirmFunc(terminal.NewPromptConfirm(os.Stdin, os.Stderr)))
	}
	// Non-interactive without --yes: no confirm func, approval-required
	// commands are denied.

	return engine.New(cfg, opts...), cfg, nil
}
