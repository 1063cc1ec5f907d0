package main

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		photons   int
		sample    int
		threshold float64
		gate      bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare error rates with and without an eavesdropper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := e.cfg.Analysis
			fs := cmd.Flags()
			if fs.Changed("photons") {
				opts.PhotonCount = photons
			}
			if fs.Changed("sample") {
				opts.SampleSize = sample
			}
			if fs.Changed("threshold") {
				opts.ThresholdPercent = threshold
			}
			if fs.Changed("gate-on-sample") {
				opts.GateOnSample = gate
			}
			cfg := *e.cfg
			cfg.Analysis = opts
			if err := cfg.Validate(); err != nil {
				return err
			}

			sampleSize := opts.SampleSize
			if sampleSize == 0 {
				sampleSize = -1
			}
			a, err := bb84.NewAnalyzer(bb84.AnalyzerOpts{
				PhotonCount:      opts.PhotonCount,
				SampleSize:       sampleSize,
				ThresholdPercent: opts.ThresholdPercent,
				Confidence:       opts.Confidence,
				GateOnSample:     opts.GateOnSample,
				Rand:             rand.New(rand.NewSource(e.seedValue())),
			})
			if err != nil {
				return err
			}
			e.state.PublishAnalysis(a.Analyze())
			an, ok := e.state.Analysis()
			if !ok {
				return errors.New("analysis was not published")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, analysisTable(an))
			fmt.Fprintf(out, "\nThreshold: %.1f%%\n", an.Threshold)
			if an.Detected() {
				fmt.Fprintln(out, "Eavesdropper detected: the eavesdropped key would be discarded.")
			} else {
				fmt.Fprintln(out, "Eavesdropper not detected at this threshold.")
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&photons, "photons", 0, "Photons per scenario, one of 128, 256, 512, 720, 1024")
	fs.IntVar(&sample, "sample", 0, "Same-basis bits compared publicly (0 compares none)")
	fs.Float64Var(&threshold, "threshold", 0, "Error rate, in percent, above which a key is rejected")
	fs.BoolVar(&gate, "gate-on-sample", false, "Classify on the sampled error rate")
	return cmd
}
