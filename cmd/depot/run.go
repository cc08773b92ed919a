package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xraph/depot"
	"github.com/xraph/depot/internal/demo"
)

var (
	runCount    int
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bootstrap the demo components and run the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, _, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}

		svc, err := depot.Get[*demo.Service](cmd.Context(), r)
		if err != nil {
			return err
		}

		for i := 0; i < runCount; i++ {
			if i > 0 {
				time.Sleep(runInterval)
			}

			fmt.Fprintln(cmd.OutOrStdout(), green("work:"), svc.DoWork())
		}

		return nil
	},
}

func init() {
	runCmd.Flags().IntVarP(&runCount, "count", "n", 1, "number of work iterations")
	runCmd.Flags().DurationVar(&runInterval, "interval", time.Second, "pause between iterations")
}
