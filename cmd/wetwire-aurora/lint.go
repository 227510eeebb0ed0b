package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-aurora-go/internal/lint"
)

var errLintFailed = errors.New("lint failed")

func newLintCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		rules        []string
		minRetention int
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the declared stack for risky settings",
		Long: `Lint declares the stack and runs the WAU rules over it.

Rules:
    WAU001  Place the cluster in at least two availability zones
    WAU002  Give the subnet group at least two subnets
    WAU003  Keep a final snapshot when the cluster is deleted
    WAU004  Require IAM authentication on the proxy
    WAU005  Scope policy statements to specific resources
    WAU006  Retain backups for at least a week

Examples:
    wetwire-aurora lint -s dev
    wetwire-aurora lint -s dev --rules WAU001,WAU003 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			result := lint.Lint(p.Stack, lint.Options{EnabledRules: rules, MinRetentionDays: minRetention})
			return outputLintResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Rules to run (default: all)")
	cmd.Flags().IntVar(&minRetention, "min-retention-days", 0, "Minimum backup retention for WAU006 (default 7)")

	return cmd
}

func outputLintResult(w io.Writer, result lint.Result, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}
	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}
		for _, issue := range result.Issues {
			fmt.Fprintln(w, issue.String())
			if issue.Suggestion != "" {
				fmt.Fprintf(w, "    %s\n", issue.Suggestion)
			}
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errLintFailed
	}
	return nil
}
