package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aurora-go"
	"github.com/lex00/wetwire-aurora-go/internal/differ"
	"github.com/lex00/wetwire-aurora-go/internal/template"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat  string
		ignoreOrder   bool
		ignoreOutputs bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare CloudFormation templates",
		Long: `Diff compares two rendered templates. With one argument it compares that
template against the stack as currently declared.

Examples:
    wetwire-aurora diff old.json new.json
    wetwire-aurora diff -s dev deployed.json
    wetwire-aurora diff old.yaml new.yaml --ignore-order`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dopts := differ.Options{IgnoreOrder: ignoreOrder, IgnoreOutputs: ignoreOutputs}

			var (
				result *differ.Result
				err    error
			)
			if len(args) == 2 {
				result, err = differ.CompareFiles(args[0], args[1], dopts)
			} else {
				result, err = diffAgainstStack(cmd, opts, args[0], dopts)
			}
			if err != nil {
				return err
			}
			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&ignoreOutputs, "ignore-outputs", false, "Ignore the Outputs section")

	return cmd
}

func diffAgainstStack(cmd *cobra.Command, opts *globalOptions, path string, dopts differ.Options) (*differ.Result, error) {
	before, err := differ.LoadTemplate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	p, err := opts.load(cmd.Context())
	if err != nil {
		return nil, err
	}
	after, err := template.NewBuilder(p.Stack).Build()
	if err != nil {
		return nil, err
	}
	return differ.Compare(before, after, dopts)
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, wetwire.DiffResult{Diff: result.Diff, Summary: result.Summary})

	case "text":
		if result.Empty() {
			fmt.Fprintln(w, "No differences.")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		for _, name := range result.Outputs {
			fmt.Fprintf(w, "~ output %s\n", name)
		}
		s := result.Summary
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n", s.Added, s.Removed, s.Modified)
		return nil
	}
	return fmt.Errorf("unknown format: %s", format)
}
