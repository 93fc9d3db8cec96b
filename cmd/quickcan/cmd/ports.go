package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quickcan/goquickcan"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list available serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPorts()
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func printPorts() error {
	ports, err := quickcan.ListPorts()
	if err != nil {
		return err
	}
	fmt.Println("Available ports:")
	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("  %s USB %s:%s serial %s %s\n", color.GreenString(p.Name), p.VID, p.PID, p.SerialNumber, p.Product)
			continue
		}
		fmt.Printf("  %s\n", p.Name)
	}
	return nil
}
