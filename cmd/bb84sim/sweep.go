package main

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/config"
	"github.com/spf13/cobra"
)

func newSweepCmd(e *env) *cobra.Command {
	var (
		counts []int
		trials int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Chart how the error rates separate as more photons are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if trials <= 0 {
				return fmt.Errorf("%w: --trials must be positive", config.ErrInvalid)
			}
			sampleSize := e.cfg.Analysis.SampleSize
			if sampleSize == 0 {
				sampleSize = -1
			}
			points, err := bb84.Sweep(cmd.Context(), bb84.SweepOpts{
				PhotonCounts:     counts,
				Trials:           trials,
				SampleSize:       sampleSize,
				ThresholdPercent: e.cfg.Analysis.ThresholdPercent,
				Rand:             rand.New(rand.NewSource(e.seedValue())),
			})
			if err != nil {
				return err
			}
			t := newTable("Photons", "Trials", "Without Eve", "With Eve", "Detected", "False Alarms")
			for _, p := range points {
				t.Row(
					strconv.Itoa(p.PhotonCount),
					strconv.Itoa(p.Trials),
					fmt.Sprintf("%.2f%% ± %.2f", p.BaselineMean, p.BaselineStdDev),
					fmt.Sprintf("%.2f%% ± %.2f", p.EavesdropMean, p.EavesdropStdDev),
					fmt.Sprintf("%.0f%%", 100*p.DetectionRate),
					fmt.Sprintf("%.0f%%", 100*p.FalseAlarmRate),
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntSliceVar(&counts, "photons", config.PhotonMenu, "Photon counts to analyze")
	fs.IntVar(&trials, "trials", 10, "Analyses per photon count")
	return cmd
}
