package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/tui"
	"github.com/logflow/procmine/pkg/watch"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var debounce time.Duration
	var clearScreen bool
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-run analyze whenever an event log file changes",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			w, err := watch.NewWatcher(watch.WithDebounce(debounce), watch.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if err := w.Watch(args[0]); err != nil {
				w.Close()
				return err
			}

			w.OnChange = func(ctx context.Context, path string) error {
				if clearScreen {
					tui.ClearConsole(a.out)
				}
				return a.analyze(ctx, path, false)
			}
			w.OnError = func(path string, err error) {
				a.printer.Warn(err.Error())
			}

			if err := a.analyze(ctx, args[0], false); err != nil {
				a.printer.Warn(err.Error())
			}
			a.printer.Muted("Watching " + args[0] + " (Ctrl+C to stop)")

			err = w.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		}),
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is analyzed")
	cmd.Flags().BoolVar(&clearScreen, "clear", true, "Clear the console before each report")
	return cmd
}
