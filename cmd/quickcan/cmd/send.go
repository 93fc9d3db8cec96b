package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const flagExtended = "extended"

var sendCmd = &cobra.Command{
	Use:   "send ID [BYTE...]",
	Short: "send one CAN frame",
	Long: `Send one CAN frame. ID is decimal or hex with a 0x prefix,
data bytes are always hex.`,
	Example: "  quickcan -p /dev/ttyUSB0 send 0x7DF 02 01 0C",
	Args:    cobra.RangeArgs(1, 16),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		data, err := parseHexBytes(args[1:])
		if err != nil {
			return err
		}
		extended, _ := cmd.Flags().GetBool(flagExtended)

		d, err := openDriver(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Send(id, data, extended); err != nil {
			return err
		}
		fmt.Printf("sent 0x%X % X\n", id, data)
		return nil
	},
}

func init() {
	sendCmd.Flags().BoolP(flagExtended, "e", false, "use a 29 bit identifier")
	rootCmd.AddCommand(sendCmd)
}
