package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"syringe/host/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List serial ports, USB devices first, with the board type when the
USB vendor and product IDs are recognised.`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(out, formatPort(p))
	}
	return nil
}

// formatPort renders one port as a listing line
func formatPort(p serial.PortInfo) string {
	line := p.Name
	if !p.USB {
		return line
	}
	line += fmt.Sprintf("  %s:%s", p.VID, p.PID)
	if board := p.Board(); board != "" {
		line += "  " + valueStyle.Render(board)
	}
	if p.Product != "" {
		line += "  " + p.Product
	}
	if p.Serial != "" {
		line += "  serial=" + p.Serial
	}
	return line
}
