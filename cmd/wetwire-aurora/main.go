// Command wetwire-aurora declares an Aurora Serverless v2 MySQL cluster, with
// an optional RDS Proxy, from a per-stack settings file.
//
// Usage:
//
//	wetwire-aurora build -s dev              Render a CloudFormation template
//	wetwire-aurora build -s dev -t pulumi    Render a Pulumi YAML program
//	wetwire-aurora graph -s dev              Show the resource graph
//	wetwire-aurora preview -s dev            Plan against recorded state
//	wetwire-aurora up -s dev                 Apply through the local engine
//	wetwire-aurora version                   Show version
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-aurora-go/internal/logging"
	"github.com/lex00/wetwire-aurora-go/internal/program"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	dir          string
	configPath   string
	stack        string
	adminRoleARN string
	logLevel     string
	logFormat    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "wetwire-aurora",
		Short: "Declare an Aurora Serverless MySQL cluster with an optional RDS Proxy",
		Long: `wetwire-aurora declares an Aurora Serverless v2 MySQL cluster and, when
proxy.enabled is set, the IAM role, policy and RDS Proxy that broker
credentials for it.

Settings are read from wetwire-aurora.<stack>.yaml:

    dbUsername: admin
    dbName: demo
    secretArn: arn:aws:secretsmanager:...
    proxy:
      enabled: true
      iam: true
    networkOutputs: network.yaml

The master password comes from WETWIRE_DBPASSWORD.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "C", ".", "Directory holding the stack settings")
	flags.StringVar(&opts.configPath, "config", "", "Settings file (default: <dir>/wetwire-aurora.<stack>.yaml)")
	flags.StringVarP(&opts.stack, "stack", "s", "dev", "Stack name")
	flags.StringVar(&opts.adminRoleARN, "admin-role-arn", "", "Admin role ARN; skips the IAM lookup")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatConsole, "Log format: console or json")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newGraphCmd(opts),
		newValidateCmd(opts),
		newLintCmd(opts),
		newListCmd(opts),
		newDiffCmd(opts),
		newPreviewCmd(opts),
		newUpCmd(opts),
		newDestroyCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-aurora %s\n", getVersion())
		},
	}
}

// load declares the stack from the settings.
func (o *globalOptions) load(ctx context.Context) (*program.Program, error) {
	return program.Load(ctx, program.Options{
		Dir:          o.dir,
		ConfigPath:   o.configPath,
		Stack:        o.stack,
		AdminRoleARN: o.adminRoleARN,
	})
}

func (o *globalOptions) logger() (*zap.Logger, error) {
	return logging.New(o.logLevel, o.logFormat)
}

// statePath is where the local engine records a stack's resources.
func (o *globalOptions) statePath() string {
	return filepath.Join(o.dir, ".wetwire-aurora", o.stack+".state.json")
}
