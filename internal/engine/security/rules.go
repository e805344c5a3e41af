package security

import "regexp"

// DenyRule is one deny-list entry. A match blocks the command outright.
type DenyRule struct {
	Pattern *regexp.Regexp
	Reason  string
}

// ApprovalRule is one approval-required entry. A match allows the command at
// high risk but requires explicit user confirmation before execution.
type ApprovalRule struct {
	Pattern *regexp.Regexp
	Reason  string
}

// Rules is the ordered, data-declared rule set the validator evaluates.
// Evaluation order is: deny list, allow list, approval list, write-verb
// heuristic, read-verb heuristic, default fallback. First match wins and no
// rule after a deny match is consulted.
type Rules struct {
	Deny         []DenyRule
	AllowPrefix  []string
	Approval     []ApprovalRule
	WriteVerbs   *regexp.Regexp
	ReadCommands map[string]struct{}
}

// DefaultRules returns the compiled default rule set.
func DefaultRules() *Rules {
	return &Rules{
		Deny:         defaultDenyRules(),
		AllowPrefix:  defaultAllowPrefixes(),
		Approval:     defaultApprovalRules(),
		WriteVerbs:   writeVerbPattern,
		ReadCommands: defaultReadCommands(),
	}
}

// writeVerbPattern detects mutating verbs anywhere in a command as whole words.
var writeVerbPattern = regexp.MustCompile(`\b(rm|mv|cp|chmod|chown|write|delete|drop|truncate)\b`)

func defaultDenyRules() []DenyRule {
	return []DenyRule{
		{regexp.MustCompile(`rm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)[a-zA-Z]*\s+(/|~|\$HOME)(\s|$)`), "recursive delete of root or home directory"},
		{regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`), "filesystem format"},
		{regexp.MustCompile(`\bdd\b.*\bof=/dev/(sd|hd|nvme|disk)`), "raw write to block device"},
		{regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;`), "fork bomb"},
		{regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*0?777\s+/(etc|usr|bin|sbin|var|boot)?(\s|$|/)`), "world-writable permissions on system path"},
		{regexp.MustCompile(`\b(curl|wget)\b[^|;]*\|\s*(sudo\s+)?(ba)?sh\b`), "piping a download into a shell"},
		{regexp.MustCompile(`\bsudo\s+rm\b`), "privileged file removal"},
		{regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`), "system shutdown or reboot"},
		{regexp.MustCompile(`(>|>>|\btee\b)\s*/etc/`), "write under /etc"},
	}
}

// defaultAllowPrefixes lists known-safe, read-only command prefixes. A command
// matches when it equals a prefix or starts with the prefix followed by a space.
func defaultAllowPrefixes() []string {
	return []string{
		"ls",
		"cat",
		"pwd",
		"whoami",
		"date",
		"uname",
		"which",
		"git status",
		"git log",
		"git diff",
		"git branch",
		"git show",
		"git remote -v",
		"npm list",
		"npm view",
		"pip list",
		"pip show",
		"go version",
		"node --version",
		"python --version",
	}
}

func defaultApprovalRules() []ApprovalRule {
	return []ApprovalRule{
		{regexp.MustCompile(`\b(npm|yarn|pnpm)\s+publish\b`), "publishes a package to a registry"},
		{regexp.MustCompile(`\bgit\s+push\b.*(\s--force\b|\s-f\b)`), "force push rewrites remote history"},
		{regexp.MustCompile(`\bgit\s+reset\s+--hard\b`), "hard reset discards local changes"},
		{regexp.MustCompile(`\bkubectl\s+delete\b`), "deletes cluster resources"},
		{regexp.MustCompile(`\bterraform\s+destroy\b`), "destroys provisioned infrastructure"},
		{regexp.MustCompile(`\baws\s+s3\s+(rb|rm)\b`), "removes cloud storage objects"},
		{regexp.MustCompile(`(?i)\bDROP\s+(TABLE|DATABASE|SCHEMA)\b`), "drops database objects"},
		{regexp.MustCompile(`(?i)\bDELETE\s+FROM\b`), "deletes database rows"},
		{regexp.MustCompile(`(?i)\bTRUNCATE\s+TABLE\b`), "truncates a database table"},
	}
}

// defaultReadCommands lists read-only leading tokens for the read heuristic.
func defaultReadCommands() map[string]struct{} {
	names := []string{
		"ls", "cat", "head", "tail", "grep", "find",
		"echo", "pwd", "whoami", "date", "which",
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
