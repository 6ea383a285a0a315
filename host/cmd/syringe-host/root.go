package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"syringe/config"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// Machine configuration file (JSON), empty for the built-in default
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "syringe-host",
	Short: "Syringe pump controller host tool",
	Long: `syringe-host runs and talks to the syringe pump controller.

Modes:
  serve  run the controller on this machine's GPIO pins
  sim    run the controller against a simulated plunger
  send   send one command to a controller board over serial
  ports  list serial ports

Flag defaults are read from the environment (and a .env file):
  SYRINGE_PORT    serial device, e.g. /dev/ttyACM0
  SYRINGE_BAUD    baud rate
  SYRINGE_CONFIG  machine configuration JSON file`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: applyEnvDefaults,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Machine configuration file (JSON)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// applyEnvDefaults fills flags the user did not set from SYRINGE_* variables
func applyEnvDefaults(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if v := os.Getenv("SYRINGE_PORT"); v != "" && !flags.Changed("port") {
		portName = v
	}
	if v := os.Getenv("SYRINGE_CONFIG"); v != "" && !flags.Changed("config") {
		configPath = v
	}
	if v := os.Getenv("SYRINGE_BAUD"); v != "" && !flags.Changed("baud") {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SYRINGE_BAUD: %w", err)
		}
		baudRate = baud
	}
	return nil
}

// loadMachineConfig reads the configuration file, or returns the default
func loadMachineConfig(path string) (*config.MachineConfig, error) {
	if path == "" {
		return config.DefaultSyringeConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
