package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/watcher"
)

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "Quiet period after the last change before re-applying")
}

var watchCmd = &cobra.Command{
	Use:   "watch [filter...]",
	Short: "Re-apply whenever a source file changes",
	Long: `Watch applies once, then keeps watching the source roots and
re-applies after every change. Event bursts are coalesced; runs never
overlap. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.watch")
		rc, err := newRunContext(args)
		if err != nil {
			return err
		}

		run := func() error {
			rc.engine.InvalidateModules()
			result, err := rc.engine.Apply(false)
			if err != nil {
				return err
			}
			fmt.Println(rc.renderer.Summary(result.Applied, len(result.Errors), false))
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info().Str("root", rc.paths.ProjectRoot()).Msg("watching")
		err = watcher.New(rc.paths, watchDebounce, run).Watch(ctx)
		if goerrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
