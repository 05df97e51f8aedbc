package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/substation/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario FILE...",
	Short: "Replay scenario files and report failed expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			sc, err := scenarios.Load(path)
			if err != nil {
				return err
			}
			if err := scenarios.Run(sc); err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s\n%v\n", sc.Name, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d steps)\n", sc.Name, len(sc.Steps))
		}
		if failed > 0 {
			return fmt.Errorf("%d scenario(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
