package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aurora-go"
	"github.com/lex00/wetwire-aurora-go/internal/template"
	"github.com/lex00/wetwire-aurora-go/internal/validation"
	"github.com/lex00/wetwire-aurora-go/stack"
)

var errValidationFailed = errors.New("validation failed")

// newValidateCmd creates the "validate" subcommand.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		skipLint     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the resource graph and lint the rendered template",
		Long: `Validate declares the stack and checks it.

Checks performed:
  - Dependency graph: every edge names a declared resource and there are no cycles
  - cfn-lint: the rendered CloudFormation template passes cfn-lint-go

Examples:
    wetwire-aurora validate -s dev
    wetwire-aurora validate -s dev --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			result := runValidate(p.Stack, skipLint)
			return outputValidateResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Only check the graph")

	return cmd
}

func runValidate(s *stack.Stack, skipLint bool) wetwire.ValidateResult {
	fail := func(err error) wetwire.ValidateResult {
		return wetwire.ValidateResult{Success: false, Resources: s.Len(), Errors: []string{err.Error()}}
	}

	if err := s.Validate(); err != nil {
		return fail(err)
	}
	tmpl, err := template.NewBuilder(s).Build()
	if err != nil {
		return fail(err)
	}
	if skipLint {
		return wetwire.ValidateResult{Success: true, Resources: s.Len()}
	}

	lint, err := validation.LintTemplate(tmpl)
	if err != nil {
		return fail(fmt.Errorf("cfn-lint: %w", err))
	}
	return lint.ToValidateResult(s.Len())
}

func outputValidateResult(w io.Writer, result wetwire.ValidateResult, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}
		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errValidationFailed
	}
	return nil
}
