// Package lint checks a declared stack for settings that deploy but are
// likely to hurt later: single-zone placement, missing final snapshots,
// proxies that skip IAM and over-broad policies.
package lint

import (
	"fmt"
	"sort"

	"github.com/lex00/wetwire-aurora-go/stack"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding.
type Issue struct {
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Resource   string   `json:"resource"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", i.Severity, i.Resource, i.Message, i.Rule)
}

// Rule checks every node of a stack.
type Rule interface {
	ID() string
	Description() string
	Check(s *stack.Stack) []Issue
}

// Result contains the outcome of linting.
type Result struct {
	// Success is false when any issue is an error.
	Success bool    `json:"success"`
	Issues  []Issue `json:"issues"`
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// MinRetentionDays for the ShortBackupRetention rule.
	MinRetentionDays int
}

// Lint runs the enabled rules over s. Issues are sorted by resource, then rule.
func Lint(s *stack.Stack, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(s)...)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Resource != issues[j].Resource {
			return issues[i].Resource < issues[j].Resource
		}
		return issues[i].Rule < issues[j].Rule
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}
	return Result{Success: success, Issues: issues}
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	if opts.MinRetentionDays > 0 {
		for i, r := range all {
			if sbr, ok := r.(ShortBackupRetention); ok {
				sbr.MinDays = opts.MinRetentionDays
				all[i] = sbr
			}
		}
	}

	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
