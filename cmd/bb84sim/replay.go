package main

import (
	"fmt"
	"os"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/spf13/cobra"
)

func newReplayCmd(e *env) *cobra.Command {
	var (
		target int
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "replay <transcript>",
		Short: "Recompute statistics and key from a recorded transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			events, err := bb84.ReadTranscript(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if !cmd.Flags().Changed("target") {
				target = e.cfg.Simulation.TargetKeyBits
			}

			out := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintln(out, photonHeader)
				for _, ev := range events {
					fmt.Fprintln(out, photonRow(ev))
				}
			}
			s := bb84.Replay(events)
			printSummary(out, s, bb84.ExtractKey(events, target), s.Interceptions > 0, false)
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", 0, "Key bits to extract")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}
