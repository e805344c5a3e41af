// Package terminal provides helpers for detecting whether the current
// session is interactive and for obtaining user confirmation of
// approval-required commands.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// ciEnvVars contains common CI environment variables.
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"CIRCLECI",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD",
}

// DetectorOptions controls interactive detection.
type DetectorOptions struct {
	ForceInteractive    bool
	ForceNonInteractive bool
}

// InteractiveDetector reports terminal capabilities of the current process.
type InteractiveDetector interface {
	IsInteractive() bool
	IsTerminal() bool
	IsCIEnvironment() bool
}

// DefaultInteractiveDetector implements InteractiveDetector.
type DefaultInteractiveDetector struct {
	options DetectorOptions
}

// NewInteractiveDetector creates a detector with the given options.
func NewInteractiveDetector(options DetectorOptions) InteractiveDetector {
	return &DefaultInteractiveDetector{options: options}
}

// IsInteractive returns true if the session can prompt the user. Command line
// options take priority, then CI detection, then the terminal check.
func (d *DefaultInteractiveDetector) IsInteractive() bool {
	if d.options.ForceInteractive {
		return true
	}
	if d.options.ForceNonInteractive {
		return false
	}
	if d.IsCIEnvironment() {
		return false
	}
	return d.IsTerminal()
}

// IsTerminal returns true if stdin and stdout are attached to a terminal.
func (d *DefaultInteractiveDetector) IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// IsCIEnvironment returns true if a known CI environment variable is set.
func (d *DefaultInteractiveDetector) IsCIEnvironment() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
