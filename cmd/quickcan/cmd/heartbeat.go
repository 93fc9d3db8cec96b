package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quickcan/goquickcan"
)

const flagInterval = "interval"

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "keep the adapter link alive while printing received frames",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration(flagInterval)
		b, err := openBus(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Shutdown()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return quickcan.Heartbeat(ctx, b, interval)
		})
		g.Go(func() error {
			return monitor(ctx, b)
		})
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	heartbeatCmd.Flags().Duration(flagInterval, quickcan.DefaultHeartbeatInterval, "time between heartbeats")
	rootCmd.AddCommand(heartbeatCmd)
}
