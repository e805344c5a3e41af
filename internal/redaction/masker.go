// Package redaction detects and redacts secret-shaped substrings in arbitrary
// text before it is logged, persisted, or displayed.
package redaction

// Placeholder is the fixed redaction marker inserted in place of secret material.
const Placeholder = "[REDACTED]"

// shortSecretMax is the longest match that is replaced wholly by the
// placeholder. Longer matches keep their first and last visibleEdge
// characters so operators can still correlate which credential leaked.
const (
	shortSecretMax = 8
	visibleEdge    = 4
)

// Masker redacts secret-shaped substrings using a fixed, ordered pattern set.
type Masker struct {
	patterns    []SecretPattern
	placeholder string
}

// NewMasker creates a Masker with the default pattern set.
func NewMasker() *Masker {
	return &Masker{
		patterns:    DefaultSecretPatterns(),
		placeholder: Placeholder,
	}
}

// NewMaskerWithPatterns creates a Masker with a custom ordered pattern set.
// Intended for tests exercising individual pattern classes.
func NewMaskerWithPatterns(patterns []SecretPattern) *Masker {
	return &Masker{
		patterns:    patterns,
		placeholder: Placeholder,
	}
}

// Mask returns text with every pattern match redacted. Matches of length
// shortSecretMax or shorter are replaced wholly by the placeholder; longer
// matches keep the first and last visibleEdge characters around it.
// Patterns are applied in order and a span already rewritten by an earlier
// pattern may be masked again by a later one.
func (m *Masker) Mask(text string) string {
	if text == "" {
		return text
	}
	result := text
	for _, p := range m.patterns {
		result = p.Pattern.ReplaceAllStringFunc(result, m.maskMatch)
	}
	return result
}

// ContainsSecrets reports whether text contains at least one pattern match.
// It is a pure existence check used to gate more expensive downstream logic.
func (m *Masker) ContainsSecrets(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range m.patterns {
		if p.Pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func (m *Masker) maskMatch(match string) string {
	if len(match) <= shortSecretMax {
		return m.placeholder
	}
	return match[:visibleEdge] + m.placeholder + match[len(match)-visibleEdge:]
}
