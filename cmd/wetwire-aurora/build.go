package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aurora-go"
	"github.com/lex00/wetwire-aurora-go/internal/pulumiyaml"
	"github.com/lex00/wetwire-aurora-go/internal/template"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Render targets.
const (
	targetCloudFormation = "cfn"
	targetPulumi         = "pulumi"
)

type buildOptions struct {
	target       string
	outputFormat string
	outputFile   string
}

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var b buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the stack as a CloudFormation template or Pulumi YAML program",
		Long: `Build declares the stack and renders it for an external deployment engine.

Examples:
    wetwire-aurora build -s dev
    wetwire-aurora build -s dev -f yaml -o template.yaml
    wetwire-aurora build -s dev -t pulumi -o Pulumi.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			return runBuild(p.Stack, b, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&b.target, "target", "t", targetCloudFormation, "Render target: cfn or pulumi")
	cmd.Flags().StringVarP(&b.outputFormat, "format", "f", "json", "Output format for cfn: json or yaml")
	cmd.Flags().StringVarP(&b.outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(s *stack.Stack, opts buildOptions, w io.Writer) error {
	data, err := render(s, opts)
	if err != nil {
		return err
	}
	if opts.outputFile == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	return os.WriteFile(opts.outputFile, data, 0644)
}

// render produces the bytes for one target and format.
func render(s *stack.Stack, opts buildOptions) ([]byte, error) {
	switch opts.target {
	case targetCloudFormation, "":
		tmpl, err := template.NewBuilder(s).Build()
		if err != nil {
			return nil, fmt.Errorf("build failed: %w", err)
		}
		switch opts.outputFormat {
		case "json", "":
			return template.ToJSON(tmpl)
		case "yaml":
			return template.ToYAML(tmpl)
		}
		return nil, fmt.Errorf("unknown format: %s", opts.outputFormat)

	case targetPulumi:
		prog, err := pulumiyaml.Build(s)
		if err != nil {
			return nil, fmt.Errorf("build failed: %w", err)
		}
		return pulumiyaml.ToYAML(prog)
	}
	return nil, fmt.Errorf("unknown target: %s (use 'cfn' or 'pulumi')", opts.target)
}

// buildResult summarizes a render for JSON output.
func buildResult(s *stack.Stack, target string, err error) wetwire.BuildResult {
	if err != nil {
		return wetwire.BuildResult{Success: false, Target: target, Errors: []string{err.Error()}}
	}
	names := make([]string, 0, s.Len())
	for _, n := range s.Resources() {
		names = append(names, n.Name)
	}
	return wetwire.BuildResult{Success: true, Target: target, Resources: names}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
