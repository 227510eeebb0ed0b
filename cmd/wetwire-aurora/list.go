package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aurora-go"
	"github.com/lex00/wetwire-aurora-go/stack"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources in creation order",
		Long: `List declares the stack and prints every resource with its dependencies.

Examples:
    wetwire-aurora list -s dev
    wetwire-aurora list -s dev --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			result, err := listResult(p.Stack)
			if err != nil {
				return err
			}
			return outputListResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func listResult(s *stack.Stack) (wetwire.ListResult, error) {
	order, err := s.TopologicalOrder()
	if err != nil {
		return wetwire.ListResult{}, err
	}
	result := wetwire.ListResult{Resources: make([]wetwire.ListResource, 0, len(order))}
	for _, name := range order {
		node, _ := s.Resource(name)
		result.Resources = append(result.Resources, wetwire.ListResource{
			Name:      name,
			Type:      node.Type(),
			DependsOn: node.Dependencies(),
		})
	}
	return result, nil
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string) error {
	switch format {
	case "json":
		return writeJSON(w, result)

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources declared.")
			return nil
		}
		fmt.Fprintf(w, "Declared resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", format)
}
