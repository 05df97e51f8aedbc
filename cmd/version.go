package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		v := Version
		if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
			v = info.Main.Version
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
