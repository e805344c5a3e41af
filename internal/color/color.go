// Package color provides small helpers for coloring terminal output using
// ANSI escape sequences, including the fixed palette for risk levels.
// Functions return formatted strings; call Disable to strip coloring when
// output is not a terminal.
package color

import (
	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// ANSI color codes
const (
	resetCode  = "\033[0m"
	grayCode   = "\033[90m"
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
	boldRed    = "\033[1;31m"
	cyanCode   = "\033[36m"
)

// Color wraps text with an ANSI escape sequence.
type Color func(text string) string

// NewColor creates a color function with the specified ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

// Predefined color functions
var (
	// Gray colors text in gray (bright black)
	Gray = NewColor(grayCode)

	// Green colors text in green
	Green = NewColor(greenCode)

	// Yellow colors text in yellow
	Yellow = NewColor(yellowCode)

	// Red colors text in red
	Red = NewColor(redCode)

	// BoldRed colors text in bold red
	BoldRed = NewColor(boldRed)

	// Cyan colors text in cyan
	Cyan = NewColor(cyanCode)
)

// None returns text unchanged. Used when color output is disabled.
func None(text string) string { return text }

// ForRiskLevel returns the display color for a risk level: green for safe,
// gray for low, yellow for medium, red for high, bold red for blocked.
func ForRiskLevel(level enginetypes.RiskLevel) Color {
	switch level {
	case enginetypes.RiskLevelSafe:
		return Green
	case enginetypes.RiskLevelLow:
		return Gray
	case enginetypes.RiskLevelMedium:
		return Yellow
	case enginetypes.RiskLevelHigh:
		return Red
	case enginetypes.RiskLevelBlocked:
		return BoldRed
	default:
		return None
	}
}

// Symbol returns a risk level's symbol wrapped in its display color.
func Symbol(level enginetypes.RiskLevel, enabled bool) string {
	if !enabled {
		return level.Symbol()
	}
	return ForRiskLevel(level)(level.Symbol())
}
