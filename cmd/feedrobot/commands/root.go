package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configFile *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "feedrobot",
	Short: "feedrobot watches WeChat official accounts through an adb-attached device and records every new article.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configFile = rootCmd.PersistentFlags().String("config", "config.json5", "Path to the robot config file.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
