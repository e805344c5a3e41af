package enginetypes

// Audit actions recorded by the engine.
const (
	// AuditActionValidate records a validation decision for a command
	AuditActionValidate = "validate"
	// AuditActionExecute records the outcome of a command execution
	AuditActionExecute = "execute"
	// AuditActionToolExecution records a tool-level validation or execution
	AuditActionToolExecution = "tool_execution"
	// AuditActionChain records the outcome of a tool chain execution
	AuditActionChain = "chain"
)

// Audit results recorded by the engine.
const (
	// AuditResultSuccess indicates the operation completed successfully
	AuditResultSuccess = "success"
	// AuditResultFailure indicates the operation ran but failed
	AuditResultFailure = "failure"
	// AuditResultBlocked indicates the operation was blocked by policy
	AuditResultBlocked = "blocked"
)

// AuditEntry is one immutable, persisted record of a security decision or
// execution outcome. Entries are appended to the audit log at the moment a
// decision or outcome is known and are never mutated afterwards. The Command
// field is always masked before the entry is constructed for persistence.
type AuditEntry struct {
	// ID is a ULID assigned at append time; IDs sort in append order.
	ID string `json:"id"`

	// Timestamp is the decision time in ISO-8601 (RFC 3339) form.
	Timestamp string `json:"timestamp"`

	Action        string    `json:"action"`
	Command       string    `json:"command,omitempty"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Approved      bool      `json:"approved"`
	Result        string    `json:"result,omitempty"`
	OperationType string    `json:"operation_type,omitempty"`
	DryRun        bool      `json:"dry_run"`
}
