package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quickcan/goquickcan"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "print received CAN frames until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBus(ctx)
		if err != nil {
			return err
		}
		defer func() {
			log.Debug(b.Stats())
			b.Shutdown()
		}()
		log.Info("Entering monitoring mode")
		return monitor(ctx, b)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// monitor prints messages from b until ctx is done or the bus stops.
func monitor(ctx context.Context, b *quickcan.Bus) error {
	for {
		msg, err := b.RecvContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fmt.Println(msg.ColorString())
	}
}
