// Package orchestrator turns a natural-language request into an ordered tool
// chain and executes it with dependency awareness and bounded recovery.
// Planning is a fixed decision table (verbs x domains x complexity) mapping
// onto a small catalogue of chain templates.
package orchestrator

import (
	"strings"
	"time"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// Complexity is the coarse tier assigned to a request during planning.
type Complexity int

const (
	// ComplexitySimple covers single-verb, short requests
	ComplexitySimple Complexity = iota
	// ComplexityMedium covers multi-step but single-domain requests
	ComplexityMedium
	// ComplexityComplex covers multi-verb or multi-domain requests
	ComplexityComplex
)

// String returns a string representation of Complexity
func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityMedium:
		return "medium"
	case ComplexityComplex:
		return "complex"
	default:
		return "medium"
	}
}

// requestSignals are the coarse signals extracted from a request.
type requestSignals struct {
	verbs      map[string]bool // create | read | write | execute | test
	domains    map[string]bool // frontend | backend | testing | devops
	complexity Complexity
}

var verbKeywords = map[string][]string{
	"create":  {"create", "make", "new", "scaffold", "generate", "build", "set up", "setup"},
	"read":    {"read", "show", "list", "view", "inspect", "look at", "what is"},
	"write":   {"write", "update", "modify", "edit", "change", "fix", "add"},
	"execute": {"run", "execute", "start", "launch"},
	"test":    {"test", "verify", "check", "validate"},
}

var domainKeywords = map[string][]string{
	"frontend": {"react", "vue", "svelte", "frontend", "ui", "component", "css", "page"},
	"backend":  {"api", "server", "backend", "endpoint", "database", "db", "service"},
	"testing":  {"test", "tests", "coverage", "jest", "vitest"},
	"devops":   {"docker", "deploy", "ci", "pipeline", "kubernetes", "k8s"},
}

const (
	shortRequestLen = 60
	longRequestLen  = 200
)

// analyzeRequest extracts verb, domain, and complexity signals from a request.
func analyzeRequest(request string) requestSignals {
	lower := strings.ToLower(request)

	signals := requestSignals{
		verbs:   make(map[string]bool),
		domains: make(map[string]bool),
	}
	for verb, keywords := range verbKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				signals.verbs[verb] = true
				break
			}
		}
	}
	for domain, keywords := range domainKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				signals.domains[domain] = true
				break
			}
		}
	}

	switch {
	case len(signals.verbs) >= 3 || len(signals.domains) >= 2 || len(request) > longRequestLen:
		signals.complexity = ComplexityComplex
	case len(signals.verbs) <= 1 && len(request) < shortRequestLen:
		signals.complexity = ComplexitySimple
	default:
		signals.complexity = ComplexityMedium
	}
	return signals
}

// AnalyzeAndPlan maps a request onto the fixed catalogue of chain templates.
// The returned chain is dependency-ordered; ExecuteChain walks it in list
// order and never re-sorts.
func (o *Orchestrator) AnalyzeAndPlan(request string) *enginetypes.ToolChain {
	signals := analyzeRequest(request)

	var chain *enginetypes.ToolChain
	switch {
	case signals.verbs["create"] && signals.complexity == ComplexityComplex:
		chain = scaffoldChainFull(signals)
	case signals.verbs["create"]:
		chain = scaffoldChainSimple(signals)
	case signals.verbs["test"]:
		chain = testChain()
	case signals.verbs["execute"]:
		chain = executeChainTemplate(request)
	case signals.verbs["read"] || len(signals.verbs) == 0:
		chain = inspectChain()
	default:
		chain = editChain()
	}

	chain.Reasoning = planReasoning(signals)
	o.logger.Info("planned tool chain",
		"steps", len(chain.Tools),
		"complexity", signals.complexity.String(),
		"risk_level", chain.RiskLevel.String())
	return chain
}

func planReasoning(signals requestSignals) string {
	verbs := make([]string, 0, len(signals.verbs))
	for v := range signals.verbs {
		verbs = append(verbs, v)
	}
	domains := make([]string, 0, len(signals.domains))
	for d := range signals.domains {
		domains = append(domains, d)
	}
	var b strings.Builder
	b.WriteString(signals.complexity.String())
	b.WriteString(" request")
	if len(verbs) > 0 {
		b.WriteString("; verbs: ")
		b.WriteString(strings.Join(verbs, ", "))
	}
	if len(domains) > 0 {
		b.WriteString("; domains: ")
		b.WriteString(strings.Join(domains, ", "))
	}
	return b.String()
}

// scaffoldChainFull is the template for complex create requests:
// research phase, scaffold phase, install phase, then verify phase.
func scaffoldChainFull(signals requestSignals) *enginetypes.ToolChain {
	template := "app"
	if signals.domains["frontend"] {
		template = "frontend"
	} else if signals.domains["backend"] {
		template = "backend"
	}
	return &enginetypes.ToolChain{
		Tools: []enginetypes.ToolExecution{
			{
				Name:   "research",
				Tool:   "analyze_project",
				Params: enginetypes.ShellParams{Command: "ls -la"},
			},
			{
				Name:      "scaffold",
				Tool:      "scaffold_project",
				Params:    enginetypes.ScaffoldParams{Template: template},
				DependsOn: []string{"research"},
			},
			{
				Name:       "install",
				Tool:       "install_packages",
				Params:     enginetypes.ShellParams{Command: "npm install"},
				DependsOn:  []string{"scaffold"},
				RetryCount: 1,
				Timeout:    5 * time.Minute,
			},
			{
				Name:      "verify",
				Tool:      "shell_command",
				Params:    enginetypes.ShellParams{Command: "npm test --if-present"},
				DependsOn: []string{"install"},
			},
		},
		EstimatedDuration: 6 * time.Minute,
		RiskLevel:         enginetypes.RiskLevelMedium,
	}
}

func scaffoldChainSimple(signals requestSignals) *enginetypes.ToolChain {
	template := "app"
	if signals.domains["frontend"] {
		template = "frontend"
	} else if signals.domains["backend"] {
		template = "backend"
	}
	return &enginetypes.ToolChain{
		Tools: []enginetypes.ToolExecution{
			{
				Name:   "scaffold",
				Tool:   "scaffold_project",
				Params: enginetypes.ScaffoldParams{Template: template},
			},
			{
				Name:       "install",
				Tool:       "install_packages",
				Params:     enginetypes.ShellParams{Command: "npm install"},
				DependsOn:  []string{"scaffold"},
				RetryCount: 1,
				Timeout:    5 * time.Minute,
			},
		},
		EstimatedDuration: 3 * time.Minute,
		RiskLevel:         enginetypes.RiskLevelMedium,
	}
}

func testChain() *enginetypes.ToolChain {
	return &enginetypes.ToolChain{
		Tools: []enginetypes.ToolExecution{
			{
				Name:       "test",
				Tool:       "shell_command",
				Params:     enginetypes.ShellParams{Command: "npm test --if-present"},
				RetryCount: 1,
				Timeout:    3 * time.Minute,
			},
		},
		EstimatedDuration: 3 * time.Minute,
		RiskLevel:         enginetypes.RiskLevelLow,
	}
}

func executeChainTemplate(request string) *enginetypes.ToolChain {
	return &enginetypes.ToolChain{
		Tools: []enginetypes.ToolExecution{
			{
				Name:    "run",
				Tool:    "shell_command",
				Params:  enginetypes.ShellParams{Command: "npm start"},
				Timeout: 3 * time.Minute,
			},
		},
		Reasoning:         request,
		EstimatedDuration: 3 * time.Minute,
		RiskLevel:         enginetypes.RiskLevelMedium,
	}
}

func inspectChain() *enginetypes.ToolChain {
	return &enginetypes.ToolChain{
		Tools: []enginetypes.ToolExecution{
			{
				Name:   "overview",
				Tool:   "analyze_project",
				Params: enginetypes.ShellParams{Command: "ls -la"},
			},
			{
				Name:      "status",
				Tool:      "git_status",
				Params:    enginetypes.ShellParams{Command: "git status"},
				DependsOn: []string{"overview"},
			},
		},
		EstimatedDuration: 30 * time.Second,
		RiskLevel:         enginetypes.RiskLevelSafe,
	}
}

func editChain() *enginetypes.ToolChain {
	return &enginetypes.ToolChain{
		Tools: []enginetypes.ToolExecution{
			{
				Name:   "overview",
				Tool:   "analyze_project",
				Params: enginetypes.ShellParams{Command: "ls -la"},
			},
			{
				Name:      "verify",
				Tool:      "shell_command",
				Params:    enginetypes.ShellParams{Command: "npm test --if-present"},
				DependsOn: []string{"overview"},
				Timeout:   3 * time.Minute,
			},
		},
		EstimatedDuration: 3 * time.Minute,
		RiskLevel:         enginetypes.RiskLevelLow,
	}
}
