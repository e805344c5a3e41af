package executor

import "regexp"

// destructivePatterns is a small, hard-coded list covering the same dangerous
// shapes as the validator's deny list. It is checked independently of the
// validator; either check blocking a command is sufficient to prevent a spawn.
var destructivePatterns = []struct {
	pattern *regexp.Regexp
	reason  string
}{
	{regexp.MustCompile(`rm\s+-[a-zA-Z]*r[a-zA-Z]*f[a-zA-Z]*\s+/(\s|$)`), "recursive delete of filesystem root"},
	{regexp.MustCompile(`\bmkfs\b`), "filesystem format"},
	{regexp.MustCompile(`\bdd\b.*\bof=/dev/`), "raw write to device node"},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;`), "fork bomb"},
	{regexp.MustCompile(`\b(shutdown|reboot|halt)\b`), "system shutdown"},
}

// matchesDestructivePattern runs the legacy destructive check.
func matchesDestructivePattern(command string) (string, bool) {
	for _, p := range destructivePatterns {
		if p.pattern.MatchString(command) {
			return p.reason, true
		}
	}
	return "", false
}
