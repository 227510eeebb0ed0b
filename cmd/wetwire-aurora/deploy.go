package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-aurora-go/internal/engine"
	"github.com/lex00/wetwire-aurora-go/internal/provider/memory"
)

type deployOptions struct {
	statePath   string
	parallelism int
	region      string
	failOn      []string
}

func (d *deployOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.statePath, "state", "", "State file (default: <dir>/.wetwire-aurora/<stack>.state.json)")
}

func (d *deployOptions) path(opts *globalOptions) string {
	if d.statePath != "" {
		return d.statePath
	}
	return opts.statePath()
}

// provider is the local simulation provider, seeded with what st recorded.
func (d *deployOptions) provider(st *engine.State, region string) *memory.Provider {
	opts := []memory.Option{memory.WithState(st)}
	if d.region != "" {
		region = d.region
	}
	if region != "" {
		opts = append(opts, memory.WithRegion(region))
	}
	p := memory.New(opts...)
	for _, name := range d.failOn {
		p.FailOn(engine.OpCreate, name)
	}
	return p
}

func newPreviewCmd(opts *globalOptions) *cobra.Command {
	var (
		d            deployOptions
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what up would change",
		Long: `Preview plans the declared stack against the recorded state.

Examples:
    wetwire-aurora preview -s dev
    wetwire-aurora preview -s dev --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			st, err := engine.LoadState(d.path(opts), opts.stack)
			if err != nil {
				return err
			}
			plan, err := engine.Preview(p.Stack, st)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), plan)
			}
			printPlan(cmd.OutOrStdout(), opts.stack, plan)
			return nil
		},
	}

	d.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func newUpCmd(opts *globalOptions) *cobra.Command {
	var d deployOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply the stack through the local engine",
		Long: `Up applies the declared stack through the in-memory provider and records
the result in the state file. Independent resources are created in parallel.
The first failure halts the run; resources created before it stay recorded.

Examples:
    wetwire-aurora up -s dev
    wetwire-aurora up -s dev --parallelism 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			path := d.path(opts)
			st, err := engine.LoadState(path, opts.stack)
			if err != nil {
				return err
			}
			e := engine.New(d.provider(st, p.Config.Region), engine.WithLogger(log), engine.WithParallelism(d.parallelism))
			result, applyErr := e.Apply(cmd.Context(), p.Stack, st)
			if err := st.Save(path); err != nil {
				log.Error("saving state", zap.String("path", path), zap.Error(err))
				if applyErr == nil {
					applyErr = err
				}
			}
			if applyErr != nil {
				return applyErr
			}

			printOutputs(cmd.OutOrStdout(), result.Outputs)
			return nil
		},
	}

	d.register(cmd)
	cmd.Flags().IntVarP(&d.parallelism, "parallelism", "p", engine.DefaultParallelism, "Concurrent provider calls")
	cmd.Flags().StringVar(&d.region, "region", "", "Region for simulated endpoints (default: config region)")
	cmd.Flags().StringSliceVar(&d.failOn, "fail-on", nil, "Resources whose create call fails (fault injection)")
	_ = cmd.Flags().MarkHidden("fail-on")

	return cmd
}

func newDestroyCmd(opts *globalOptions) *cobra.Command {
	var d deployOptions

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every recorded resource, dependents first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			path := d.path(opts)
			st, err := engine.LoadState(path, opts.stack)
			if err != nil {
				return err
			}
			if len(st.Resources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to destroy.")
				return nil
			}
			count := len(st.Resources)
			destroyErr := engine.New(d.provider(st, ""), engine.WithLogger(log)).Destroy(cmd.Context(), st)
			if err := st.Save(path); err != nil && destroyErr == nil {
				destroyErr = err
			}
			if destroyErr != nil {
				return destroyErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Destroyed %d resources.\n", count)
			return nil
		},
	}

	d.register(cmd)
	return cmd
}

var opSymbols = map[engine.Op]string{
	engine.OpCreate:  "+",
	engine.OpUpdate:  "~",
	engine.OpReplace: "-/+",
	engine.OpDelete:  "-",
	engine.OpSame:    " ",
}

func printPlan(w io.Writer, stackName string, plan *engine.Plan) {
	fmt.Fprintf(w, "Plan for stack %s:\n\n", stackName)
	for _, step := range plan.Steps {
		fmt.Fprintf(w, "  %-3s %s (%s)\n", opSymbols[step.Op], step.Name, step.Type)
		for _, c := range step.Changes {
			fmt.Fprintf(w, "        %s\n", c)
		}
	}
	c := plan.Counts()
	fmt.Fprintf(w, "\n%d to create, %d to update, %d to replace, %d to delete, %d unchanged\n",
		c[engine.OpCreate], c[engine.OpUpdate], c[engine.OpReplace], c[engine.OpDelete], c[engine.OpSame])
}

func printOutputs(w io.Writer, outputs map[string]any) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Outputs:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %v\n", name, outputs[name])
	}
}
