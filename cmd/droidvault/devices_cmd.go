package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droidvault/droidvault/internal/adb"
)

func init() {
	rootCmd.AddCommand(newDevicesCmd())
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			client, err := adb.New(cfg.AdbPath)
			if err != nil {
				return err
			}

			devices, err := client.Devices(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices attached")
				return nil
			}
			for _, d := range devices {
				fmt.Fprintf(out, "%s\t%s\n", d.Serial, renderDeviceState(d.State))
			}
			return nil
		},
	}
}

func renderDeviceState(state string) string {
	switch state {
	case "device":
		return green.Render(state)
	case "offline", "unauthorized":
		return red.Render(state)
	default:
		return gray.Render(state)
	}
}
