package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-aurora-go/internal/graph"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat   string
		includeOutputs bool
		cluster        bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.
Solid edges come from deferred values, dashed edges are explicit ordering.

The output can be rendered with Graphviz:
    wetwire-aurora graph -s dev | dot -Tpng -o deps.png

Examples:
    wetwire-aurora graph -s dev
    wetwire-aurora graph -s dev -o          # include stack outputs
    wetwire-aurora graph -s dev -c          # cluster by component
    wetwire-aurora graph -s dev -f mermaid  # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var format graph.Format
			switch outputFormat {
			case "dot":
				format = graph.FormatDOT
			case "mermaid":
				format = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			gen := &graph.Generator{
				Format:             format,
				ClusterByComponent: cluster,
				IncludeOutputs:     includeOutputs,
			}
			return gen.Generate(p.Stack, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeOutputs, "include-outputs", "o", false, "Include stack output nodes in the graph")
	cmd.Flags().BoolVarP(&cluster, "cluster", "c", false, "Cluster resources by component")

	return cmd
}
