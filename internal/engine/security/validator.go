// Package security classifies agent-issued shell commands and tool
// invocations into risk levels and allow/block decisions using ordered,
// data-declared rule tables.
package security

import (
	"strings"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// Validator classifies raw command strings. Validation results are computed
// fresh per call and never cached: the rule tables can change between
// releases, so a command is not idempotent in risk over time.
type Validator struct {
	rules *Rules
}

// NewValidator creates a validator with the default rule set.
func NewValidator() *Validator {
	return &Validator{rules: DefaultRules()}
}

// NewValidatorWithRules creates a validator with a custom rule set.
// Intended for tests exercising individual rule stages in isolation.
func NewValidatorWithRules(rules *Rules) *Validator {
	return &Validator{rules: rules}
}

// Validate classifies a command string. Stages are evaluated in order and the
// first match wins; a deny-list match short-circuits all later stages.
func (v *Validator) Validate(command string) enginetypes.CommandValidation {
	cmd := strings.TrimSpace(command)

	// Stage 1: deny list
	for _, rule := range v.rules.Deny {
		if rule.Pattern.MatchString(cmd) {
			return enginetypes.CommandValidation{
				Allowed:          false,
				RiskLevel:        enginetypes.RiskLevelBlocked,
				Reason:           rule.Reason,
				RequiresApproval: false,
				OperationType:    enginetypes.OperationWrite,
			}
		}
	}

	// Stage 2: allow list (exact or prefix match)
	for _, prefix := range v.rules.AllowPrefix {
		if cmd == prefix || strings.HasPrefix(cmd, prefix+" ") {
			return enginetypes.CommandValidation{
				Allowed:       true,
				RiskLevel:     enginetypes.RiskLevelSafe,
				OperationType: enginetypes.OperationRead,
			}
		}
	}

	// Stage 3: approval-required patterns
	for _, rule := range v.rules.Approval {
		if rule.Pattern.MatchString(cmd) {
			return enginetypes.CommandValidation{
				Allowed:          true,
				RiskLevel:        enginetypes.RiskLevelHigh,
				Reason:           rule.Reason,
				RequiresApproval: true,
				OperationType:    enginetypes.OperationWrite,
			}
		}
	}

	// Stage 4: write-verb heuristic
	if v.rules.WriteVerbs.MatchString(cmd) {
		return enginetypes.CommandValidation{
			Allowed:          true,
			RiskLevel:        enginetypes.RiskLevelMedium,
			Reason:           "command contains a mutating verb",
			RequiresApproval: true,
			OperationType:    enginetypes.OperationWrite,
		}
	}

	// Stage 5: read-verb heuristic on the leading token
	if fields := strings.Fields(cmd); len(fields) > 0 {
		if _, ok := v.rules.ReadCommands[fields[0]]; ok {
			return enginetypes.CommandValidation{
				Allowed:       true,
				RiskLevel:     enginetypes.RiskLevelSafe,
				OperationType: enginetypes.OperationRead,
			}
		}
	}

	// Stage 6: default fallback for unclassified commands
	return enginetypes.CommandValidation{
		Allowed:          true,
		RiskLevel:        enginetypes.RiskLevelLow,
		Reason:           "unclassified command",
		RequiresApproval: true,
		OperationType:    enginetypes.OperationUnknown,
	}
}
