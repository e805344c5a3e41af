// Package engine wires the command validator, process executor, audit log,
// and tool orchestrator into the single entry point the conversational loop
// calls. The engine owns the approval flow: an approval-required command is
// executed only after the installed confirmation callback returns true, and
// every decision is audited before any side effect occurs.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vibecli/vibe/internal/engine/audit"
	"github.com/vibecli/vibe/internal/engine/config"
	"github.com/vibecli/vibe/internal/engine/enginetypes"
	"github.com/vibecli/vibe/internal/engine/executor"
	"github.com/vibecli/vibe/internal/engine/orchestrator"
	"github.com/vibecli/vibe/internal/engine/security"
	"github.com/vibecli/vibe/internal/redaction"
	"github.com/vibecli/vibe/internal/terminal"
)

// Engine is the command execution and safety engine.
type Engine struct {
	cfg          *config.Config
	validator    *security.Validator
	masker       *redaction.Masker
	auditLogger  *audit.Logger
	executor     *executor.ProcessExecutor
	orchestrator *orchestrator.Orchestrator
	confirm      terminal.ConfirmFunc
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfirmFunc installs the user-confirmation callback for
// approval-required commands. Without one, such commands are denied.
func WithConfirmFunc(confirm terminal.ConfirmFunc) Option {
	return func(e *Engine) { e.confirm = confirm }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New assembles an engine from configuration.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		validator: security.NewValidator(),
		masker:    redaction.NewMasker(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.auditLogger = audit.NewLogger(cfg.AuditPath(),
		audit.WithEnabled(cfg.Audit.Enabled),
		audit.WithMasker(e.masker),
		audit.WithLogger(e.logger))

	e.executor = executor.NewProcessExecutor(e.validator, e.auditLogger,
		executor.WithLogger(e.logger),
		executor.WithDefaultTimeout(cfg.Timeout()),
		executor.WithMaxOutputBytes(cfg.Executor.MaxOutputBytes),
		executor.WithDryRun(cfg.Workspace.DryRun))

	e.orchestrator = orchestrator.NewOrchestrator(e.executor, e.auditLogger, cfg.Workspace.Root,
		orchestrator.WithLogger(e.logger),
		orchestrator.WithDryRun(cfg.Workspace.DryRun))

	return e
}

// Validate classifies a command and audits the decision.
func (e *Engine) Validate(command string) enginetypes.CommandValidation {
	validation := e.validator.Validate(command)

	result := ""
	if !validation.Allowed {
		result = enginetypes.AuditResultBlocked
	}
	e.auditLogger.Log(enginetypes.AuditEntry{
		Action:        enginetypes.AuditActionValidate,
		Command:       command,
		RiskLevel:     validation.RiskLevel,
		Approved:      validation.Allowed && !validation.RequiresApproval,
		Result:        result,
		OperationType: validation.OperationType.String(),
		DryRun:        e.cfg.Workspace.DryRun,
	})
	return validation
}

// Execute validates command, obtains approval when required, and runs it.
// Blocked and unapproved commands return a failed result without spawning.
func (e *Engine) Execute(ctx context.Context, command string, opts executor.Options) (*enginetypes.ShellResult, error) {
	validation := e.Validate(command)
	if !validation.Allowed {
		// The executor repeats the block decision and produces the
		// blocked result and audit entry.
		return e.executor.Execute(ctx, command, opts)
	}

	if validation.RequiresApproval {
		approved, err := e.requestApproval(ctx, command, validation)
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !approved {
			e.logger.Info("command denied by user", "command", command, "risk_level", validation.RiskLevel.String())
			return &enginetypes.ShellResult{
				Command:  command,
				Stderr:   "command not approved",
				ExitCode: 1,
				Success:  false,
			}, nil
		}
	}

	return e.executor.Execute(ctx, command, opts)
}

// Plan builds a tool chain from a natural-language request.
func (e *Engine) Plan(request string) *enginetypes.ToolChain {
	return e.orchestrator.AnalyzeAndPlan(request)
}

// Run plans and executes a tool chain for a request.
func (e *Engine) Run(ctx context.Context, request string) *enginetypes.OrchestrationResult {
	return e.orchestrator.ExecuteChain(ctx, e.Plan(request))
}

// RunChain executes an already-planned tool chain.
func (e *Engine) RunChain(ctx context.Context, chain *enginetypes.ToolChain) *enginetypes.OrchestrationResult {
	return e.orchestrator.ExecuteChain(ctx, chain)
}

// Mask redacts secret-shaped substrings from text. Callers must mask before
// persisting engine output to any other subsystem.
func (e *Engine) Mask(text string) string {
	return e.masker.Mask(text)
}

// Audit returns the audit logger for inspection commands.
func (e *Engine) Audit() *audit.Logger {
	return e.auditLogger
}

// Executor returns the process executor for cancellation by pid.
func (e *Engine) Executor() *executor.ProcessExecutor {
	return e.executor
}

// Close releases engine resources.
func (e *Engine) Close() error {
	return e.auditLogger.Close()
}

func (e *Engine) requestApproval(ctx context.Context, command string, validation enginetypes.CommandValidation) (bool, error) {
	if e.confirm == nil {
		// No confirmation handler registered: deny by default.
		return false, nil
	}
	return e.confirm(ctx, command, validation)
}
