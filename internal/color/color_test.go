package color

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

func TestNewColor(t *testing.T) {
	c := NewColor("\033[32m")
	out := c("ok")
	assert.True(t, strings.HasPrefix(out, "\033[32m"))
	assert.True(t, strings.HasSuffix(out, resetCode))
	assert.Contains(t, out, "ok")
}

func TestNone(t *testing.T) {
	assert.Equal(t, "plain", None("plain"))
}

func TestForRiskLevel(t *testing.T) {
	tests := []struct {
		level enginetypes.RiskLevel
		code  string
	}{
		{enginetypes.RiskLevelSafe, greenCode},
		{enginetypes.RiskLevelLow, grayCode},
		{enginetypes.RiskLevelMedium, yellowCode},
		{enginetypes.RiskLevelHigh, redCode},
		{enginetypes.RiskLevelBlocked, boldRed},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			out := ForRiskLevel(tt.level)("x")
			assert.True(t, strings.HasPrefix(out, tt.code))
		})
	}
}

func TestSymbol(t *testing.T) {
	plain := Symbol(enginetypes.RiskLevelHigh, false)
	assert.Equal(t, enginetypes.RiskLevelHigh.Symbol(), plain)

	colored := Symbol(enginetypes.RiskLevelHigh, true)
	assert.Contains(t, colored, enginetypes.RiskLevelHigh.Symbol())
	assert.Contains(t, colored, redCode)
}
