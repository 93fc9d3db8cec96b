package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quickcan/goquickcan"
	"github.com/quickcan/goquickcan/pkg/frame"
)

var commandCmd = &cobra.Command{
	Use:   "cmd",
	Short: "send an adapter command",
}

func init() {
	rootCmd.AddCommand(commandCmd)

	simple := []struct {
		use  string
		cmd  frame.Command
		long string
	}{
		{"heartbeat", frame.CmdHeartbeat, "send a single HEARTBEAT with counter 0"},
		{"ack", frame.CmdAck, "send ACK"},
		{"nack", frame.CmdNack, "send NACK"},
		{"ping", frame.CmdPing, "send PING"},
		{"reset", frame.CmdReset, "reset the adapter"},
		{"clear-filter", frame.CmdClearFilter, "remove the acceptance filter"},
		{"device-info", frame.CmdDeviceInfo, "request device info, the reply is logged"},
	}
	for _, s := range simple {
		c := s.cmd
		commandCmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.long,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var payload []byte
				if c == frame.CmdHeartbeat {
					payload = []byte{0}
				}
				return sendCommand(cmd, c, payload...)
			},
		})
	}

	commandCmd.AddCommand(&cobra.Command{
		Use:   "config-get KEY",
		Short: "read an adapter config key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return withDriver(cmd, func(d *quickcan.Driver) error {
				return d.SendConfigGet(key)
			})
		},
	})

	commandCmd.AddCommand(&cobra.Command{
		Use:   "config-set KEY VALUE...",
		Short: "write an adapter config key",
		Args:  cobra.RangeArgs(2, frame.MaxDataLength),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			values, err := parseBytes(args[1:])
			if err != nil {
				return err
			}
			return withDriver(cmd, func(d *quickcan.Driver) error {
				return d.SendConfigSet(key, values...)
			})
		},
	})

	commandCmd.AddCommand(&cobra.Command{
		Use:   "set-filter BYTE...",
		Short: "send an acceptance filter definition, bytes in hex",
		Args:  cobra.RangeArgs(1, frame.MaxDataLength),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseHexBytes(args)
			if err != nil {
				return err
			}
			return withDriver(cmd, func(d *quickcan.Driver) error {
				return d.SetFilter(filter...)
			})
		},
	})
}

func parseKey(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid config key %q: %w", s, err)
	}
	return uint8(v), nil
}

func sendCommand(cmd *cobra.Command, c frame.Command, payload ...byte) error {
	return withDriver(cmd, func(d *quickcan.Driver) error {
		return d.SendCommand(c, payload...)
	})
}

func withDriver(cmd *cobra.Command, fn func(d *quickcan.Driver) error) error {
	d, err := openDriver(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()
	if err := fn(d); err != nil {
		return err
	}
	fmt.Printf("sent %s\n", cmd.Name())
	return nil
}
