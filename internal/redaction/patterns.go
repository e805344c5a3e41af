package redaction

import "regexp"

// SecretPattern is one secret-shaped pattern together with a short name used
// in diagnostics. Patterns are applied in declaration order; overlapping
// matches across patterns are not deduplicated, so a string may be masked
// twice. Over-masking is the safe failure mode.
type SecretPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultSecretPatterns returns the fixed, ordered list of secret-shaped
// patterns the masker detects.
func DefaultSecretPatterns() []SecretPattern {
	return []SecretPattern{
		// Provider API keys (OpenAI/Anthropic style sk- prefixes)
		{"provider_api_key", regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`)},

		// OAuth / personal access tokens
		{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`)},
		{"gitlab_token", regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`)},
		{"slack_token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`)},

		// JWTs (three base64url segments starting with the {"alg" header)
		{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`)},

		// Cloud access key IDs
		{"aws_access_key", regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},

		// Generic 40-character high-entropy hex tokens (e.g. SHA-1 shaped secrets)
		{"hex40_token", regexp.MustCompile(`\b[0-9a-fA-F]{40}\b`)},

		// key=value / key: value credential assignments
		{"credential_assignment", regexp.MustCompile(`(?i)\b(?:password|passwd|pwd|api[_-]?key|secret|token)\s*[=:]\s*[^\s"']+`)},

		// Authorization bearer headers
		{"bearer_header", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{8,}`)},

		// PEM private key headers
		{"pem_private_key", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	}
}
