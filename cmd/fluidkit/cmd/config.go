package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gekko3d/fluidkit/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the simulation config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to --config",
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.WriteDefault(configPath); err != nil {
			logrus.Fatalf("fluidkit: %v", err)
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
