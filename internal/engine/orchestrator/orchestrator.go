package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vibecli/vibe/internal/engine/audit"
	"github.com/vibecli/vibe/internal/engine/enginetypes"
	"github.com/vibecli/vibe/internal/engine/executor"
	"github.com/vibecli/vibe/internal/engine/security"
)

// Error definitions
var (
	// ErrMissingDependency is returned when a step's dependency has not
	// executed. This can only happen if the plan itself was malformed.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrToolBlocked is returned when a step's tool is rejected by validation
	ErrToolBlocked = errors.New("tool blocked")

	// ErrUnknownTool is returned when a chain references an unregistered tool
	ErrUnknownTool = errors.New("unknown tool")

	// ErrChainAborted is returned when a high-risk chain stops after an
	// irrecoverable step failure
	ErrChainAborted = errors.New("chain aborted")
)

const (
	// defaultStepTimeout bounds one attempt of a step without its own timeout
	defaultStepTimeout = 2 * time.Minute

	// defaultRetryDelay seeds the exponential backoff between step attempts
	defaultRetryDelay = 500 * time.Millisecond

	// recoveryDelay is the fixed wait before a recovery attempt
	recoveryDelay = 2 * time.Second
)

// recoverableKeywords are the error message words treated as transient.
// Matching is on word boundaries so e.g. "blocked" never matches "locked".
var (
	recoverableKeywords = []string{"timeout", "timed out", "network", "temporary", "busy", "locked"}
	recoverablePattern  = regexp.MustCompile(`\b(` + strings.Join(recoverableKeywords, "|") + `)\b`)
)

// Orchestrator sequences dependent tool executions, retries failed steps,
// and applies bounded automatic recovery.
type Orchestrator struct {
	executor    *executor.ProcessExecutor
	registry    *Registry
	auditLogger *audit.Logger
	logger      *slog.Logger
	dryRun      bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithDryRun blocks all write-classified tools during chain execution.
func WithDryRun(dryRun bool) OrchestratorOption {
	return func(o *Orchestrator) { o.dryRun = dryRun }
}

// WithRegistry replaces the default tool registry.
func WithRegistry(registry *Registry) OrchestratorOption {
	return func(o *Orchestrator) { o.registry = registry }
}

// NewOrchestrator creates an orchestrator executing shell steps through exec.
func NewOrchestrator(exec *executor.ProcessExecutor, auditLogger *audit.Logger, workspace string, opts ...OrchestratorOption) *Orchestrator {
	if exec == nil {
		panic("NewOrchestrator: executor cannot be nil")
	}
	o := &Orchestrator{
		executor:    exec,
		auditLogger: auditLogger,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.registry == nil {
		o.registry = DefaultRegistry(exec, workspace)
	}
	return o
}

// ExecuteChain walks the chain in list order. A step runs only when every
// name in its DependsOn is already in the executed set. On an irrecoverable
// step failure, a high-risk chain aborts immediately rather than continuing
// with partial side effects; lower-risk chains continue so later independent
// steps still run. Results and Errors always reflect every step that ran.
func (o *Orchestrator) ExecuteChain(ctx context.Context, chain *enginetypes.ToolChain) *enginetypes.OrchestrationResult {
	start := time.Now()
	result := &enginetypes.OrchestrationResult{
		Results: make(map[string]string),
		Errors:  make(map[string]error),
		Chain:   chain,
	}
	executed := make(map[string]struct{}, len(chain.Tools))
	aborted := false

	for _, step := range chain.Tools {
		if err := o.checkDependencies(step, executed); err != nil {
			result.Errors[step.Name] = err
			continue
		}

		output, err := o.executeStep(ctx, step)
		if err == nil {
			executed[step.Name] = struct{}{}
			result.Results[step.Name] = output
			continue
		}

		if o.canRecover(step, err) {
			output, err = o.attemptRecovery(ctx, step, err)
			if err == nil {
				executed[step.Name] = struct{}{}
				result.Results[step.Name] = output
				continue
			}
		}

		result.Errors[step.Name] = err
		o.logger.Warn("chain step failed", "step", step.Name, "tool", step.Tool, "error", err)

		if chain.RiskLevel >= enginetypes.RiskLevelHigh {
			result.Errors[step.Name] = fmt.Errorf("%w: %v", ErrChainAborted, err)
			aborted = true
			break
		}
	}

	result.Success = len(result.Errors) == 0 && !aborted
	result.Duration = time.Since(start)

	if o.auditLogger != nil {
		chainResult := enginetypes.AuditResultSuccess
		if !result.Success {
			chainResult = enginetypes.AuditResultFailure
		}
		o.auditLogger.Log(enginetypes.AuditEntry{
			Action:    enginetypes.AuditActionChain,
			RiskLevel: chain.RiskLevel,
			Result:    chainResult,
			DryRun:    o.dryRun,
		})
	}
	return result
}

func (o *Orchestrator) checkDependencies(step enginetypes.ToolExecution, executed map[string]struct{}) error {
	for _, dep := range step.DependsOn {
		if _, ok := executed[dep]; !ok {
			return fmt.Errorf("%w: step %q requires %q", ErrMissingDependency, step.Name, dep)
		}
	}
	return nil
}

// executeStep validates the step's tool and runs it with retry.
func (o *Orchestrator) executeStep(ctx context.Context, step enginetypes.ToolExecution) (string, error) {
	validation := security.ValidateToolExecution(step.Tool, o.dryRun)
	if o.auditLogger != nil {
		auditResult := enginetypes.AuditResultSuccess
		if !validation.Allowed {
			auditResult = enginetypes.AuditResultBlocked
		}
		o.auditLogger.Log(enginetypes.AuditEntry{
			Action:        enginetypes.AuditActionToolExecution,
			Command:       step.Tool,
			RiskLevel:     validation.RiskLevel,
			Approved:      validation.Allowed,
			Result:        auditResult,
			OperationType: security.ClassifyTool(step.Tool).String(),
			DryRun:        o.dryRun,
		})
	}
	if !validation.Allowed {
		return "", fmt.Errorf("%w: %s: %s", ErrToolBlocked, step.Tool, validation.Reason)
	}
	return o.executeWithRetry(ctx, step)
}

// executeWithRetry runs one step up to step.RetryCount additional attempts
// with exponential backoff. Each attempt is bounded by the step timeout.
func (o *Orchestrator) executeWithRetry(ctx context.Context, step enginetypes.ToolExecution) (string, error) {
	handler, ok := o.registry.Lookup(step.Tool)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, step.Tool)
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}

	var output string
	var err error
	for attempt := 0; ; attempt++ {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		output, err = handler(stepCtx, step.Params)
		cancel()

		if err == nil || attempt >= step.RetryCount {
			return output, err
		}
		if ctx.Err() != nil {
			return output, err
		}

		backoff := defaultRetryDelay << attempt
		o.logger.Info("retrying chain step",
			"step", step.Name,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return output, err
		}
	}
}

// canRecover checks the error message for transient-looking keywords. Shell
// steps additionally qualify for the alternate-command substitution. Policy
// rejections are final and never recovered.
func (o *Orchestrator) canRecover(step enginetypes.ToolExecution, err error) bool {
	if errors.Is(err, ErrToolBlocked) || errors.Is(err, ErrUnknownTool) || errors.Is(err, ErrBadParams) {
		return false
	}
	if recoverablePattern.MatchString(strings.ToLower(err.Error())) {
		return true
	}
	// Shell package-manager failures may succeed under the alternate manager.
	if params, ok := step.Params.(enginetypes.ShellParams); ok {
		if _, substitutable := substituteCommand(params.Command); substitutable {
			return true
		}
	}
	return false
}

// attemptRecovery waits a fixed delay, optionally substitutes an alternate
// command shape, and retries the step once. The retry goes back through
// executeStep so tool validation is re-applied to the recovered step.
func (o *Orchestrator) attemptRecovery(ctx context.Context, step enginetypes.ToolExecution, cause error) (string, error) {
	o.logger.Info("attempting recovery", "step", step.Name, "cause", cause)

	select {
	case <-time.After(recoveryDelay):
	case <-ctx.Done():
		return "", cause
	}

	recovered := step
	recovered.RetryCount = 0
	if params, ok := step.Params.(enginetypes.ShellParams); ok {
		if alt, substituted := substituteCommand(params.Command); substituted {
			o.logger.Info("substituting alternate command", "step", step.Name, "command", alt)
			params.Command = alt
			recovered.Params = params
		}
	}
	return o.executeStep(ctx, recovered)
}

// substituteCommand returns the one hard-coded alternate command shape:
// yarn in place of npm.
func substituteCommand(command string) (string, bool) {
	if strings.HasPrefix(command, "npm ") {
		return "yarn " + strings.TrimPrefix(command, "npm "), true
	}
	return command, false
}
