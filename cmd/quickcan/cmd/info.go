package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quickcan/goquickcan"
	"github.com/quickcan/goquickcan/pkg/frame"
)

const flagMinFirmware = "min-firmware"

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "print adapter info",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		minimum, _ := cmd.Flags().GetString(flagMinFirmware)
		b, err := openBus(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Shutdown()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()
		start := time.Now()
		f, err := b.Request(ctx, frame.CmdDeviceInfo)
		if err != nil {
			return fmt.Errorf("device info: %w", err)
		}
		log.Debugf("took %s", time.Since(start))

		info, err := quickcan.ParseDeviceInfo(f)
		if err != nil {
			return err
		}
		fmt.Println(info)
		if minimum == "" {
			return nil
		}
		if err := quickcan.CheckFirmware(info.Firmware, minimum); err != nil {
			return err
		}
		fmt.Println(color.GreenString("firmware ok (>= %s)", minimum))
		return nil
	},
}

func init() {
	infoCmd.Flags().String(flagMinFirmware, "", "fail if the adapter firmware is older than this version")
	rootCmd.AddCommand(infoCmd)
}
