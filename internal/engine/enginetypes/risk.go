// Package enginetypes defines the core data structures shared across the
// command execution and safety engine. It includes risk classification,
// validation results, execution progress, and tool chain planning types.
package enginetypes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RiskLevel represents the security risk classification of a command.
// Levels are totally ordered (Safe < Low < Medium < High < Blocked) so that
// conservative escalation can pick the highest matching level, except that
// Blocked always short-circuits rule evaluation.
type RiskLevel int

const (
	// RiskLevelSafe indicates known-safe, read-only commands
	RiskLevelSafe RiskLevel = iota

	// RiskLevelLow indicates commands whose effect could not be classified
	RiskLevelLow

	// RiskLevelMedium indicates commands with moderate security risk
	RiskLevelMedium

	// RiskLevelHigh indicates destructive or publishing commands that must
	// be explicitly approved before execution
	RiskLevelHigh

	// RiskLevelBlocked indicates commands that are never executed
	RiskLevelBlocked
)

// Risk level string constants used for string representation and parsing.
const (
	// SafeRiskLevelString represents a safe risk level.
	SafeRiskLevelString = "safe"
	// LowRiskLevelString represents a low risk level.
	LowRiskLevelString = "low"
	// MediumRiskLevelString represents a medium risk level.
	MediumRiskLevelString = "medium"
	// HighRiskLevelString represents a high risk level.
	HighRiskLevelString = "high"
	// BlockedRiskLevelString represents a blocked risk level.
	BlockedRiskLevelString = "blocked"
	// UnknownRiskLevelString represents an out-of-range risk level value.
	UnknownRiskLevelString = "unknown"
)

// ErrInvalidRiskLevel is returned when an unknown risk level string is parsed
var ErrInvalidRiskLevel = errors.New("invalid risk level")

// String returns a string representation of RiskLevel
func (r RiskLevel) String() string {
	switch r {
	case RiskLevelSafe:
		return SafeRiskLevelString
	case RiskLevelLow:
		return LowRiskLevelString
	case RiskLevelMedium:
		return MediumRiskLevelString
	case RiskLevelHigh:
		return HighRiskLevelString
	case RiskLevelBlocked:
		return BlockedRiskLevelString
	default:
		return UnknownRiskLevelString
	}
}

// Symbol returns the single display symbol for a risk level. UI layers must
// render risk from this mapping rather than reconstructing it from free text.
func (r RiskLevel) Symbol() string {
	switch r {
	case RiskLevelSafe:
		return "✓"
	case RiskLevelLow:
		return "·"
	case RiskLevelMedium:
		return "~"
	case RiskLevelHigh:
		return "!"
	case RiskLevelBlocked:
		return "✗"
	default:
		return "·"
	}
}

// ParseRiskLevel converts a string to RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case SafeRiskLevelString:
		return RiskLevelSafe, nil
	case LowRiskLevelString, "":
		return RiskLevelLow, nil
	case MediumRiskLevelString:
		return RiskLevelMedium, nil
	case HighRiskLevelString:
		return RiskLevelHigh, nil
	case BlockedRiskLevelString:
		return RiskLevelBlocked, nil
	default:
		return RiskLevelLow, fmt.Errorf("%w: %s (supported: safe, low, medium, high, blocked)", ErrInvalidRiskLevel, s)
	}
}

// MarshalJSON implements json.Marshaler; risk levels are persisted as strings
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// OperationType classifies the side-effect class of a command or tool.
type OperationType int

const (
	// OperationUnknown indicates the effect of the operation could not be determined
	OperationUnknown OperationType = iota

	// OperationRead indicates a read-only operation that never requires approval
	OperationRead

	// OperationWrite indicates an operation that mutates state
	OperationWrite
)

// String returns a string representation of OperationType
func (o OperationType) String() string {
	switch o {
	case OperationRead:
		return "read"
	case OperationWrite:
		return "write"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler
func (o OperationType) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (o *OperationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "read":
		*o = OperationRead
	case "write":
		*o = OperationWrite
	default:
		*o = OperationUnknown
	}
	return nil
}

// CommandValidation is the result of classifying one command string.
//
// Invariants:
//   - Allowed == false implies RiskLevel == RiskLevelBlocked
//   - RequiresApproval is never set for Safe or Blocked results
type CommandValidation struct {
	Allowed          bool
	RiskLevel        RiskLevel
	Reason           string
	RequiresApproval bool
	OperationType    OperationType
}
