package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-aurora-go/internal/config"
	"github.com/lex00/wetwire-aurora-go/internal/lint"
)

// newWatchCmd creates the "watch" subcommand for re-rendering on settings changes.
func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		b        buildOptions
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render when the stack settings change",
		Long: `Watch monitors the stack settings and network outputs files and renders
the stack again whenever one of them is written.

The watch command:
- Watches the directories holding the settings and network outputs files
- Runs lint on each change and renders if lint passes
- Debounces rapid changes to avoid excessive rebuilds
- Reports declaration errors without stopping

Examples:
    wetwire-aurora watch -s dev -o template.json
    wetwire-aurora watch -s dev -t pulumi -o Pulumi.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, b, debounce, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&b.target, "target", "t", targetCloudFormation, "Render target: cfn or pulumi")
	cmd.Flags().StringVarP(&b.outputFormat, "format", "f", "json", "Output format for cfn: json or yaml")
	cmd.Flags().StringVarP(&b.outputFile, "output", "o", "", "Output file (default: summary only)")

	return cmd
}

// watchedFiles returns the settings file and, when it can be read, the
// network outputs file it points at.
func watchedFiles(opts *globalOptions) []string {
	path := opts.configPath
	if path == "" {
		path = filepath.Join(opts.dir, config.FileName(opts.stack))
	}
	files := []string{path}
	if cfg, err := config.Load(opts.dir, opts.configPath, opts.stack); err == nil {
		files = append(files, cfg.NetworkOutputs)
	}
	return files
}

// runWatch renders once, then again after each debounced change, until ctx ends.
func runWatch(ctx context.Context, opts *globalOptions, b buildOptions, debounce time.Duration, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range watchedFiles(opts) {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fmt.Fprintf(w, "Watching: %s\n", dir)
	}

	fmt.Fprintln(w, "Running initial build...")
	rebuild(ctx, opts, b, w)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !files[abs] {
				continue
			}
			// Editors often replace files with a rename, which shows up as Create.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(w, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(ctx, opts, b, w)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-ctx.Done():
			fmt.Fprintln(w, "\nStopping watch...")
			return nil
		}
	}
}

// rebuild declares, lints and renders the stack, reporting rather than
// returning errors. Lint errors skip the render.
func rebuild(ctx context.Context, opts *globalOptions, b buildOptions, w io.Writer) bool {
	p, err := opts.load(ctx)
	if err != nil {
		fmt.Fprintf(w, "Build error: %v\n", err)
		return false
	}

	lintResult := lint.Lint(p.Stack, lint.Options{})
	for _, issue := range lintResult.Issues {
		fmt.Fprintln(w, issue.String())
	}
	if !lintResult.Success {
		fmt.Fprintln(w, "Lint failed, skipping build")
		return false
	}

	data, err := render(p.Stack, b)
	result := buildResult(p.Stack, b.target, err)
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintf(w, "Build error: %s\n", e)
		}
		return false
	}

	if b.outputFile == "" {
		fmt.Fprintf(w, "Build successful\nDeclared %d resources\n", len(result.Resources))
		return true
	}
	if err := os.WriteFile(b.outputFile, data, 0644); err != nil {
		fmt.Fprintf(w, "Failed to write output: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "Build successful, wrote %s\n", b.outputFile)
	return true
}
